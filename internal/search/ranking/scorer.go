package ranking

import (
	"strings"

	"github.com/casadaspecas/app-catalogo-api/internal/search/query"
)

// MatchType classifica o resultado para exibição (não participa do ranking)
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchSKU     MatchType = "sku"
	MatchSimilar MatchType = "similar"
	MatchFuzzy   MatchType = "fuzzy"
)

// limiarSimilar é o score mínimo para classificar um resultado como "similar"
const limiarSimilar = 80

// Scorer calcula a relevância de um item do catálogo para uma query
type Scorer struct{}

// NewScorer cria um novo scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Pontuar combina os sinais de relevância em um score aditivo.
// Score zero significa que o candidato não deve aparecer no resultado.
func (s *Scorer) Pontuar(parsed *query.ParsedQuery, titulo, sku string) int {
	q := parsed.Normalized
	if len(q) < 2 {
		return 0
	}

	tituloNorm := query.Normalize(titulo)
	skuNorm := query.Normalize(sku)
	score := 0

	// 1. Match exato do título ou SKU
	if q == tituloNorm || q == skuNorm {
		score += 1000
	}

	// 2. Prefixo
	if strings.HasPrefix(tituloNorm, q) {
		score += 200
	}
	if strings.HasPrefix(skuNorm, q) {
		score += 300
	}

	// 3. Substring
	if strings.Contains(tituloNorm, q) {
		score += 150
	}
	if strings.Contains(skuNorm, q) {
		score += 200
	}

	tituloTokens := strings.Fields(tituloNorm)

	// 4. Por token da query: o primeiro tipo de match encontrado ganha
	for _, tok := range parsed.Tokens {
		score += pontosDoToken(tok, tituloTokens) * 30
	}

	// 5. Contenção fonética
	tituloFon := query.Phonetic(titulo)
	if parsed.Phonetic != "" && strings.Contains(tituloFon, parsed.Phonetic) {
		score += 80
	}
	tituloFonTokens := strings.Fields(tituloFon)
	for _, ftok := range parsed.PhoneticTokens {
		if tokenCasaEmAlgum(ftok, tituloFonTokens) {
			score += 40
		}
	}

	// 6. Tolerância por distância de edição (tokens planos e fonéticos)
	for _, tok := range parsed.Tokens {
		score += premioDistancia(tok, tituloTokens) * 25
	}
	for _, ftok := range parsed.PhoneticTokens {
		score += premioDistancia(ftok, tituloFonTokens) * 15
	}

	// 7. SKU sem espaços contém a query
	skuCompacto := strings.ReplaceAll(skuNorm, " ", "")
	if strings.Contains(skuCompacto, strings.ReplaceAll(q, " ", "")) {
		score += 100
	}

	// 8. Bônus "todos os tokens presentes": domina o ranking de queries
	// multi-palavra sobre colisões acidentais de um token só
	if len(parsed.MeaningfulTokens) > 1 && todosTokensPresentes(parsed, tituloNorm, tituloFon) {
		score += 300
	}

	return score
}

// Classificar deriva o tipo de match para a UI, em ordem de prioridade
func (s *Scorer) Classificar(parsed *query.ParsedQuery, titulo, sku string, score int) MatchType {
	q := parsed.Normalized
	tituloNorm := query.Normalize(titulo)
	skuNorm := query.Normalize(sku)

	if strings.Contains(tituloNorm, q) || strings.Contains(q, tituloNorm) ||
		strings.Contains(skuNorm, q) || strings.Contains(q, skuNorm) {
		return MatchExact
	}

	skuCompacto := strings.ReplaceAll(skuNorm, " ", "")
	if skuCompacto != "" && strings.Contains(skuCompacto, strings.ReplaceAll(q, " ", "")) {
		return MatchSKU
	}

	if score >= limiarSimilar {
		return MatchSimilar
	}
	return MatchFuzzy
}

// pontosDoToken retorna 3 (exato), 2 (prefixo) ou 1 (substring) para o
// primeiro match do token nos tokens do título; zero se não casar
func pontosDoToken(tok string, tituloTokens []string) int {
	for _, tt := range tituloTokens {
		if tt == tok {
			return 3
		}
		if strings.HasPrefix(tt, tok) {
			return 2
		}
		if strings.Contains(tt, tok) {
			return 1
		}
	}
	return 0
}

func tokenCasaEmAlgum(tok string, tokens []string) bool {
	if tok == "" {
		return false
	}
	for _, tt := range tokens {
		if strings.HasPrefix(tt, tok) || strings.Contains(tt, tok) {
			return true
		}
	}
	return false
}

// premioDistancia retorna (maxDist - dist + 1) quando a menor distância de
// edição para um token do título de tamanho próximo cabe na tolerância
func premioDistancia(tok string, tituloTokens []string) int {
	if len(tok) < 3 {
		return 0
	}

	maxDist := len(tok) * 35 / 100
	if maxDist < 1 {
		maxDist = 1
	}

	melhor := -1
	for _, tt := range tituloTokens {
		diff := len(tt) - len(tok)
		if diff < -3 || diff > 3 {
			continue
		}
		d := levenshtein(tok, tt)
		if melhor == -1 || d < melhor {
			melhor = d
		}
	}

	if melhor == -1 || melhor > maxDist {
		return 0
	}
	return maxDist - melhor + 1
}

// todosTokensPresentes verifica se cada token significativo aparece no
// título (exato, prefixo ou substring), inclusive na forma fonética
func todosTokensPresentes(parsed *query.ParsedQuery, tituloNorm, tituloFon string) bool {
	for _, tok := range parsed.MeaningfulTokens {
		if strings.Contains(tituloNorm, tok) {
			continue
		}
		if strings.Contains(tituloFon, query.Phonetic(tok)) {
			continue
		}
		return false
	}
	return true
}

// levenshtein calcula a distância de edição entre duas strings
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			custo := 1
			if a[i-1] == b[j-1] {
				custo = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+custo)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
