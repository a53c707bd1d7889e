package models

// Produto é uma linha da tabela de produtos do catálogo.
// Somente leitura do ponto de vista deste motor; o CRUD é de outro serviço.
type Produto struct {
	SKU    string `json:"sku"`
	Titulo string `json:"titulo"`
}

// MatchResult é um item ranqueado de uma busca; nunca é persistido
type MatchResult struct {
	SKU       string `json:"sku"`
	Titulo    string `json:"titulo"`
	Score     int    `json:"score"`
	MatchType string `json:"match_type"` // exact, sku, similar, fuzzy
}

// AutocompleteResponse é a resposta do endpoint de autocomplete
type AutocompleteResponse struct {
	Results      []MatchResult `json:"results"`
	TotalMatches int           `json:"total_matches"`
}

// BuscaResponse é a resposta paginada da busca de catálogo
type BuscaResponse struct {
	Results    []MatchResult `json:"results"`
	Query      string        `json:"query"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalCount int           `json:"total_count"`
}
