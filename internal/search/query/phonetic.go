package query

import (
	"regexp"
	"strings"
)

// substituicao é uma regra de equivalência sonora aplicada em ordem
type substituicao struct {
	re   *regexp.Regexp
	para string
}

// Tabela de dobra fonética para português brasileiro. A ordem importa:
// dígrafos e encontros consonantais são tratados antes das letras isoladas.
var tabelaFonetica = []substituicao{
	{regexp.MustCompile(`ç`), "s"},
	{regexp.MustCompile(`ss`), "s"},
	{regexp.MustCompile(`sch`), "x"},
	{regexp.MustCompile(`sh`), "x"},
	{regexp.MustCompile(`ch`), "x"},
	{regexp.MustCompile(`ph`), "f"},
	{regexp.MustCompile(`lh`), "li"},
	{regexp.MustCompile(`nh`), "ni"},
	{regexp.MustCompile(`qu`), "k"},
	{regexp.MustCompile(`gue`), "ge"},
	{regexp.MustCompile(`gui`), "gi"},
	{regexp.MustCompile(`ge`), "je"},
	{regexp.MustCompile(`gi`), "ji"},
	{regexp.MustCompile(`ce`), "se"},
	{regexp.MustCompile(`ci`), "si"},
	{regexp.MustCompile(`c`), "k"},
	{regexp.MustCompile(`z`), "s"},
	{regexp.MustCompile(`w`), "v"},
	{regexp.MustCompile(`y`), "i"},
	{regexp.MustCompile(`\bh`), ""},
	{regexp.MustCompile(`rr`), "r"},
	{regexp.MustCompile(`ll`), "l"},
	{regexp.MustCompile(`tt`), "t"},
	{regexp.MustCompile(`pp`), "p"},
	{regexp.MustCompile(`bb`), "b"},
	{regexp.MustCompile(`dd`), "d"},
	{regexp.MustCompile(`mm`), "m"},
	{regexp.MustCompile(`nn`), "n"},
	{regexp.MustCompile(`ff`), "f"},
	{regexp.MustCompile(`gg`), "g"},
}

// Phonetic gera a chave fonética de uma string: aplica a tabela de
// equivalências sonoras sobre o texto em minúsculas e normaliza o resultado.
// "xampu" e "champu" produzem a mesma chave, assim como "ceramica" e "serâmica".
func Phonetic(s string) string {
	s = strings.ToLower(s)
	for _, sub := range tabelaFonetica {
		s = sub.re.ReplaceAllString(s, sub.para)
	}
	return Normalize(s)
}
