package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoverAcentos remove acentos e diacríticos de uma string
// Exemplo: "Óleo" -> "Oleo", "Suspensão" -> "Suspensao"
func RemoverAcentos(s string) string {
	if s == "" {
		return s
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizarCategoria remove acentos e converte para minúsculas
// Exemplo: "Suspensão" -> "suspensao", "Freios" -> "freios"
func NormalizarCategoria(categoria string) string {
	return strings.ToLower(RemoverAcentos(categoria))
}

// DesnormalizarCategoria tenta encontrar a categoria original com base na versão normalizada
// Recebe a categoria normalizada e uma lista de categorias válidas, retorna a categoria original
func DesnormalizarCategoria(categoriaNormalizada string, categoriasValidas []string) string {
	for _, categoria := range categoriasValidas {
		if NormalizarCategoria(categoria) == categoriaNormalizada {
			return categoria
		}
	}
	// Se não encontrar correspondência, retorna a categoria normalizada mesmo
	return categoriaNormalizada
}
