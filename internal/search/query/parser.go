package query

import (
	"regexp"
	"strings"

	"github.com/casadaspecas/app-catalogo-api/internal/utils"
)

// ParsedQuery representa uma query processada e normalizada
type ParsedQuery struct {
	Original         string   // query original
	Normalized       string   // minúsculas, sem acentos, sem pontuação
	Phonetic         string   // normalizada + dobra fonética aplicada
	Tokens           []string // tokens com 2+ caracteres
	MeaningfulTokens []string // tokens menos stopwords
	PhoneticTokens   []string // forma fonética de cada token
}

// Parser processa queries de busca do catálogo
type Parser struct{}

// NewParser cria um novo parser
func NewParser() *Parser {
	return &Parser{}
}

var (
	reNaoAlfanumerico = regexp.MustCompile(`[^a-z0-9\s]`)
	reEspacos         = regexp.MustCompile(`\s+`)
)

// Normalize converte para minúsculas, remove acentos e pontuação e colapsa espaços.
// Idempotente: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = utils.RemoverAcentos(s)
	s = reNaoAlfanumerico.ReplaceAllString(s, " ")
	s = reEspacos.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Parse processa a query e deriva as formas normalizada e fonética
func (p *Parser) Parse(query string) *ParsedQuery {
	normalized := Normalize(query)

	result := &ParsedQuery{
		Original:   query,
		Normalized: normalized,
		Phonetic:   Phonetic(query),
	}

	result.Tokens = tokenize(normalized)
	result.MeaningfulTokens = removeStopwords(result.Tokens)

	result.PhoneticTokens = make([]string, 0, len(result.Tokens))
	for _, tok := range result.Tokens {
		result.PhoneticTokens = append(result.PhoneticTokens, Phonetic(tok))
	}

	return result
}

// tokenize quebra a string normalizada em tokens, descartando os com menos de 2 caracteres
func tokenize(normalized string) []string {
	parts := strings.Fields(normalized)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) >= 2 {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// removeStopwords filtra stopwords; se o resultado ficar vazio, mantém os tokens originais
func removeStopwords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !stopwords[tok] {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return tokens
	}
	return out
}

// stopwords em português
var stopwords = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true,
	"em": true, "na": true, "no": true, "nas": true, "nos": true,
	"para": true, "por": true, "com": true, "sem": true,
	"um": true, "uma": true, "os": true, "as": true,
	"ao": true, "aos": true, "que": true, "ou": true, "e": true, "o": true, "a": true,
	"kit": true, "par": true, "peca": true, "pecas": true,
}
