package utils

import (
	"testing"
)

func TestRemoverAcentos(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Óleo", "Oleo"},
		{"Suspensão", "Suspensao"},
		{"Filtro de Combustível", "Filtro de Combustivel"},
		{"Correia Dentada", "Correia Dentada"},
		{"Embreagem", "Embreagem"},
		{"Pára-choque", "Para-choque"},
		{"", ""},
	}

	for _, test := range tests {
		result := RemoverAcentos(test.input)
		if result != test.expected {
			t.Errorf("RemoverAcentos(%q) = %q; expected %q", test.input, result, test.expected)
		}
	}
}

func TestNormalizarCategoria(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Suspensão", "suspensao"},
		{"Freios", "freios"},
		{"Elétrica", "eletrica"},
		{"Motor", "motor"},
		{"Transmissão", "transmissao"},
		{"Arrefecimento", "arrefecimento"},
		{"", ""},
	}

	for _, test := range tests {
		result := NormalizarCategoria(test.input)
		if result != test.expected {
			t.Errorf("NormalizarCategoria(%q) = %q; expected %q", test.input, result, test.expected)
		}
	}
}

func TestDesnormalizarCategoria(t *testing.T) {
	categoriasValidas := []string{
		"Motor", "Suspensão", "Freios", "Elétrica", "Transmissão",
		"Arrefecimento", "Filtros", "Iluminação", "Acessórios",
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"suspensao", "Suspensão"},
		{"eletrica", "Elétrica"},
		{"filtros", "Filtros"},
		{"transmissao", "Transmissão"},
		{"categoria_inexistente", "categoria_inexistente"}, // Retorna o que foi passado se não encontrar
	}

	for _, test := range tests {
		result := DesnormalizarCategoria(test.input, categoriasValidas)
		if result != test.expected {
			t.Errorf("DesnormalizarCategoria(%q) = %q; expected %q", test.input, result, test.expected)
		}
	}
}
