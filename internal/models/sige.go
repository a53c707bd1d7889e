package models

import "time"

// Tipos de correspondência entre SKU do catálogo e produto SIGE.
// "manual" vem de um operador; os demais são atribuídos pela sincronização.
const (
	MatchManual   = "manual"
	MatchExactCod = "exact_cod"
	MatchCleanCod = "clean_cod"
	MatchNoZeros  = "no_zeros"
	MatchSigeID   = "sige_id"
	MatchBaseDash = "base_dash"
)

// SkuMapping liga um SKU do catálogo a um produto do ERP SIGE
type SkuMapping struct {
	SKU        string    `json:"sku"`
	SigeID     int64     `json:"sigeId"`
	CodProduto string    `json:"codProduto"`
	Descricao  string    `json:"descricao,omitempty"`
	MatchType  string    `json:"matchType"`
	MatchedAt  time.Time `json:"matchedAt"`
}

// LocalEstoque é a quantidade de um produto em um depósito específico
type LocalEstoque struct {
	Local      string  `json:"local"`
	Quantidade float64 `json:"quantidade"`
	Disponivel float64 `json:"disponivel"`
	Reservado  float64 `json:"reservado"`
}

// BalanceSnapshot é o saldo de estoque de um SKU em um instante.
// Found indica se o produto foi localizado no SIGE; Sige indica se a
// resposta veio do ERP ao vivo (false quando servida de cache vencido
// em degradação).
type BalanceSnapshot struct {
	SKU        string         `json:"sku"`
	Found      bool           `json:"found"`
	Sige       bool           `json:"sige"`
	Quantidade float64        `json:"quantidade"`
	Disponivel float64        `json:"disponivel"`
	Reservado  float64        `json:"reservado"`
	Locais     []LocalEstoque `json:"locais,omitempty"`
	CachedAt   int64          `json:"_cachedAt"` // epoch em milissegundos
}

// PriceSnapshot é o preço de tabela de um SKU em um instante
type PriceSnapshot struct {
	SKU      string  `json:"sku"`
	Found    bool    `json:"found"`
	Sige     bool    `json:"sige"`
	Preco    float64 `json:"preco"`
	V1       float64 `json:"v1,omitempty"`
	V2       float64 `json:"v2,omitempty"`
	V3       float64 `json:"v3,omitempty"`
	CachedAt int64   `json:"_cachedAt"`
}

// SyncReport resume uma sincronização em massa de mapeamentos
type SyncReport struct {
	Total              int            `json:"total"`
	Mapeados           int            `json:"mapeados"`
	PorEstrategia      map[string]int `json:"porEstrategia"`
	SemCorrespondencia []string       `json:"semCorrespondencia,omitempty"`
	DuracaoMs          int64          `json:"duracaoMs"`
}
