// Package reconcile casa listas de SKUs importadas em massa contra o
// conjunto de SKUs do catálogo, sob tolerância crescente de normalização.
package reconcile

import (
	"strings"
)

// Tier identifica o nível de normalização em que o SKU casou
type Tier string

const (
	TierExact      Tier = "exact"      // byte a byte
	TierNormalized Tier = "normalized" // trim, maiúsculas, invisíveis removidos
	TierAggressive Tier = "aggressive" // normalizado + separadores removidos
)

// Match é um SKU importado que encontrou correspondência no catálogo
type Match struct {
	Imported string `json:"imported"`
	Catalog  string `json:"catalog"`
	Tier     Tier   `json:"tier"`
}

// TierCounts contabiliza os matches por nível
type TierCounts struct {
	Exact      int `json:"exact"`
	Normalized int `json:"normalized"`
	Aggressive int `json:"aggressive"`
}

// Outcome é o resultado de uma reconciliação: todo SKU importado aparece em
// exatamente uma das duas listas
type Outcome struct {
	Matched   []Match    `json:"matched"`
	Unmatched []string   `json:"unmatched"`
	Tiers     TierCounts `json:"tiers"`
}

// Reconciler executa a cascata de três níveis sobre um conjunto de catálogo.
// As tabelas de consulta dos níveis 2 e 3 são construídas uma única vez,
// então a reconciliação inteira é O(importados + catálogo).
type Reconciler struct {
	exact      map[string]struct{}
	normalized map[string]string
	aggressive map[string]string
}

// NewReconciler indexa o conjunto de SKUs do catálogo. Em colisão de chave
// normalizada, o primeiro SKU visto vence.
func NewReconciler(catalogSKUs []string) *Reconciler {
	r := &Reconciler{
		exact:      make(map[string]struct{}, len(catalogSKUs)),
		normalized: make(map[string]string, len(catalogSKUs)),
		aggressive: make(map[string]string, len(catalogSKUs)),
	}

	for _, sku := range catalogSKUs {
		r.exact[sku] = struct{}{}

		norm := NormalizeSKU(sku)
		if _, ok := r.normalized[norm]; !ok {
			r.normalized[norm] = sku
		}

		agg := AggressiveSKU(sku)
		if _, ok := r.aggressive[agg]; !ok {
			r.aggressive[agg] = sku
		}
	}

	return r
}

// Reconciliar classifica cada SKU importado no primeiro nível em que casar;
// sem match após o nível 3, o SKU vai para Unmatched.
func (r *Reconciler) Reconciliar(importedSKUs []string) *Outcome {
	out := &Outcome{
		Matched:   make([]Match, 0, len(importedSKUs)),
		Unmatched: make([]string, 0),
	}

	for _, sku := range importedSKUs {
		if _, ok := r.exact[sku]; ok {
			out.Matched = append(out.Matched, Match{Imported: sku, Catalog: sku, Tier: TierExact})
			out.Tiers.Exact++
			continue
		}

		if catalog, ok := r.normalized[NormalizeSKU(sku)]; ok {
			out.Matched = append(out.Matched, Match{Imported: sku, Catalog: catalog, Tier: TierNormalized})
			out.Tiers.Normalized++
			continue
		}

		if catalog, ok := r.aggressive[AggressiveSKU(sku)]; ok {
			out.Matched = append(out.Matched, Match{Imported: sku, Catalog: catalog, Tier: TierAggressive})
			out.Tiers.Aggressive++
			continue
		}

		out.Unmatched = append(out.Unmatched, sku)
	}

	return out
}

// NormalizeSKU aplica a normalização do nível 2: trim, maiúsculas, remoção
// de caracteres invisíveis (zero-width, BOM, NBSP) e colapso de espaços
// internos. Planilhas coladas de outros sistemas trazem todos esses.
func NormalizeSKU(sku string) string {
	var b strings.Builder
	b.Grow(len(sku))

	for _, r := range sku {
		switch r {
		case '\u200B', '\u200C', '\u200D', '\uFEFF':
			continue
		case '\u00A0':
			r = ' '
		}
		b.WriteRune(r)
	}

	s := strings.ToUpper(strings.TrimSpace(b.String()))
	return strings.Join(strings.Fields(s), " ")
}

// AggressiveSKU aplica o nível 3: normalização do nível 2 mais a remoção
// completa de hífens, pontos, sublinhados, barras e espaços
func AggressiveSKU(sku string) string {
	s := NormalizeSKU(sku)
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '_', '/', ' ':
			return -1
		}
		return r
	}, s)
}
