package query

import (
	"fmt"
	"strings"
)

// Mode controla a amplitude dos padrões de SKU gerados
type Mode string

const (
	// ModeCatalog verifica o SKU apenas na cláusula OR final (maior precisão)
	ModeCatalog Mode = "catalog"
	// ModeAutocomplete verifica o SKU por token (maior recall)
	ModeAutocomplete Mode = "autocomplete"
)

// maxVariantesPorToken limita o tamanho da expressão enviada ao banco
const maxVariantesPorToken = 15

// Tabela de acentos: para cada letra sem acento, as formas acentuadas que a
// normalização da query descartou mas que podem existir no título armazenado.
var tabelaAcentos = map[byte][]string{
	'a': {"á", "à", "â", "ã"},
	'e': {"é", "ê"},
	'i': {"í"},
	'o': {"ó", "ô", "õ"},
	'u': {"ú", "ü"},
	'c': {"ç"},
}

// Terminações morfológicas do português que a normalização achata
var terminacoes = []struct{ de, para string }{
	{"ao", "ão"},
	{"oes", "ões"},
	{"cao", "ção"},
	{"ca", "ça"},
	{"ça", "ca"},
	{"co", "ço"},
	{"ço", "co"},
}

// Builder monta expressões de filtro no dialeto lógico do PostgREST
// (or(...)/and(...) sobre predicados ilike) a partir de uma query livre.
type Builder struct{}

// NewBuilder cria um novo builder de condições
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildCondition traduz a query processada em uma árvore de filtro textual.
// O resultado é opaco para o chamador e é anexado como parâmetro de query
// na API do banco. Nunca produz expressão vazia: se a remoção de stopwords
// esvaziar a lista de tokens, os tokens originais são usados.
func (b *Builder) BuildCondition(parsed *ParsedQuery, mode Mode) string {
	tokens := parsed.MeaningfulTokens
	if len(tokens) == 0 {
		tokens = tokenize(parsed.Normalized)
	}
	if len(tokens) == 0 {
		// Query degenerada: casa qualquer título
		return "or(titulo.ilike.*)"
	}

	if len(tokens) == 1 {
		return b.condicaoTokenUnico(tokens[0], parsed.Normalized)
	}
	return b.condicaoMultiToken(tokens, parsed.Normalized, mode)
}

// condicaoTokenUnico emite um OR plano cobrindo título e SKU
func (b *Builder) condicaoTokenUnico(token, normalized string) string {
	preds := make([]string, 0, maxVariantesPorToken+4)
	for _, v := range variantesDeToken(token) {
		preds = append(preds, "titulo.ilike."+v)
	}
	for _, v := range variantesDeSKU(normalized) {
		preds = append(preds, "sku.ilike."+v)
	}
	return "or(" + strings.Join(preds, ",") + ")"
}

// condicaoMultiToken emite um AND de grupos OR por token (cada token precisa
// casar em algum lugar do título), unido por OR com padrões orientados a SKU
// para que uma query que seja um código de produto ainda encontre o item.
func (b *Builder) condicaoMultiToken(tokens []string, normalized string, mode Mode) string {
	grupos := make([]string, 0, len(tokens))
	for _, token := range tokens {
		preds := make([]string, 0, maxVariantesPorToken)
		for _, v := range variantesDeToken(token) {
			preds = append(preds, "titulo.ilike."+v)
		}
		if mode == ModeAutocomplete {
			preds = append(preds, "sku.ilike.*"+token+"*")
		}
		grupos = append(grupos, "or("+strings.Join(preds, ",")+")")
	}

	skuPreds := make([]string, 0, 4)
	for _, v := range variantesDeSKU(normalized) {
		skuPreds = append(skuPreds, "sku.ilike."+v)
	}

	return fmt.Sprintf("or(and(%s),%s)",
		strings.Join(grupos, ","),
		strings.Join(skuPreds, ","))
}

// variantesDeToken gera os padrões ilike de um token, limitado a
// maxVariantesPorToken entradas
func variantesDeToken(token string) []string {
	seen := map[string]bool{}
	variantes := make([]string, 0, maxVariantesPorToken)

	add := func(padrao string) {
		if len(variantes) >= maxVariantesPorToken || seen[padrao] {
			return
		}
		seen[padrao] = true
		variantes = append(variantes, padrao)
	}

	// Substring literal
	add("*" + token + "*")

	// Substituições de acento em cada posição
	for i := 0; i < len(token); i++ {
		acentos, ok := tabelaAcentos[token[i]]
		if !ok {
			continue
		}
		for _, acento := range acentos {
			add("*" + token[:i] + acento + token[i+1:] + "*")
		}
	}

	// Terminações morfológicas
	for _, t := range terminacoes {
		if strings.HasSuffix(token, t.de) {
			add("*" + strings.TrimSuffix(token, t.de) + t.para + "*")
		}
	}

	// Coringa na primeira (e, para tokens maiores, segunda) vogal: cobre
	// acentuações que a tabela não previu
	vogais := posicoesDeVogais(token)
	if len(vogais) > 0 {
		i := vogais[0]
		add("*" + token[:i] + "*" + token[i+1:] + "*")
	}
	if len(token) >= 5 && len(vogais) > 1 {
		i := vogais[1]
		add("*" + token[:i] + "*" + token[i+1:] + "*")
	}

	// Primeira letra acentuada não prevista: ignora o primeiro caractere
	if len(token) >= 4 {
		add("*" + token[1:] + "*")
	}

	return variantes
}

// variantesDeSKU gera padrões orientados a código de produto
func variantesDeSKU(normalized string) []string {
	seen := map[string]bool{}
	variantes := make([]string, 0, 4)

	add := func(padrao string) {
		if seen[padrao] {
			return
		}
		seen[padrao] = true
		variantes = append(variantes, padrao)
	}

	// Sem espaços
	semEspacos := strings.ReplaceAll(normalized, " ", "")
	add("*" + semEspacos + "*")

	// Espaços viram coringas
	add("*" + strings.ReplaceAll(normalized, " ", "*") + "*")

	// Separadores removidos por completo
	add("*" + removerSeparadores(normalized) + "*")

	// Segmentos alfabéticos/numéricos unidos por coringas: "abc12" casa "abc-1234"
	segmentos := segmentosAlfanumericos(semEspacos)
	if len(segmentos) > 1 {
		add("*" + strings.Join(segmentos, "*") + "*")
	}

	return variantes
}

func posicoesDeVogais(token string) []int {
	out := []int{}
	for i := 0; i < len(token); i++ {
		switch token[i] {
		case 'a', 'e', 'i', 'o', 'u':
			out = append(out, i)
		}
	}
	return out
}

func removerSeparadores(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '_', '/', ' ':
			return -1
		}
		return r
	}, s)
}

// segmentosAlfanumericos divide uma string nos limites letra/dígito
func segmentosAlfanumericos(s string) []string {
	out := []string{}
	var atual strings.Builder
	var ultimoDigito bool

	for i, r := range s {
		digito := r >= '0' && r <= '9'
		if i > 0 && digito != ultimoDigito && atual.Len() > 0 {
			out = append(out, atual.String())
			atual.Reset()
		}
		atual.WriteRune(r)
		ultimoDigito = digito
	}
	if atual.Len() > 0 {
		out = append(out, atual.String())
	}
	return out
}
