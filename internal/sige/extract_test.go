package sige

import (
	"testing"

	"go.uber.org/zap"
)

func TestExtrairQuantidade(t *testing.T) {
	casos := []struct {
		nome string
		item map[string]any
		quer float64
		acha bool
	}{
		{
			nome: "campo nomeado direto",
			item: map[string]any{"saldo": 12.5},
			quer: 12.5,
			acha: true,
		},
		{
			nome: "saldo tem prioridade sobre quantidade",
			item: map[string]any{"quantidade": 3.0, "saldo": 5.0},
			quer: 5,
			acha: true,
		},
		{
			nome: "string com vírgula decimal",
			item: map[string]any{"qtde": "2,5"},
			quer: 2.5,
			acha: true,
		},
		{
			nome: "fallback heurístico ignora id, código e paginação",
			item: map[string]any{
				"idProduto":   float64(1),
				"codProduto":  "X-99",
				"paginaAtual": float64(2),
				"pesoLiquido": float64(4),
			},
			quer: 4,
			acha: true,
		},
		{
			nome: "nenhum campo numérico utilizável",
			item: map[string]any{"descricao": "pastilha de freio", "codigo": "PF-1"},
			acha: false,
		},
	}
	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			got, ok := ExtrairQuantidade(c.item)
			if ok != c.acha {
				t.Fatalf("ok = %v, esperava %v", ok, c.acha)
			}
			if ok && got != c.quer {
				t.Errorf("quantidade = %v, esperava %v", got, c.quer)
			}
		})
	}
}

func TestExtrairReservadoEDisponivelSemHeuristica(t *testing.T) {
	// um item só com saldo não pode reportar o saldo como reservado
	// nem como disponível: sem os nomes conhecidos esses campos
	// ficam ausentes e o disponível é derivado depois
	item := map[string]any{"saldo": 7.0, "local": "Matriz"}

	if got, ok := ExtrairReservado(item); ok {
		t.Fatalf("ExtrairReservado = (%v, true), esperava ausente", got)
	}
	if got, ok := ExtrairDisponivel(item); ok {
		t.Fatalf("ExtrairDisponivel = (%v, true), esperava ausente", got)
	}

	nomeado := map[string]any{"saldo": 7.0, "reservado": 2.0, "disponivel": 5.0}
	if got, ok := ExtrairReservado(nomeado); !ok || got != 2 {
		t.Errorf("ExtrairReservado = (%v, %v), esperava (2, true)", got, ok)
	}
	if got, ok := ExtrairDisponivel(nomeado); !ok || got != 5 {
		t.Errorf("ExtrairDisponivel = (%v, %v), esperava (5, true)", got, ok)
	}
}

func TestExtrairIdentidade(t *testing.T) {
	item := map[string]any{
		"id":         float64(123),
		"codProduto": "AB-12",
		"descricao":  "Filtro de Óleo",
	}
	if got := ExtrairID(item); got != "123" {
		t.Errorf("ExtrairID = %q, esperava 123", got)
	}
	if got := ExtrairCodProduto(item); got != "AB-12" {
		t.Errorf("ExtrairCodProduto = %q, esperava AB-12", got)
	}
	if got := ExtrairDescricao(item); got != "Filtro de Óleo" {
		t.Errorf("ExtrairDescricao = %q", got)
	}
}

func TestPrecosPorLista(t *testing.T) {
	itens := []map[string]any{
		{"preco": 20.0, "idListaPreco": "2"},
		{"preco": 10.0, "idListaPreco": "1"},
		{"preco": 30.0, "idListaPreco": "3"},
	}
	v1, v2, v3 := PrecosPorLista(itens, zap.NewNop())
	if v1 != 10 || v2 != 20 || v3 != 30 {
		t.Errorf("esperava (10, 20, 30) pela ordem das listas, veio (%v, %v, %v)", v1, v2, v3)
	}

	v1, v2, v3 = PrecosPorLista([]map[string]any{{"valorVenda": 99.9}}, zap.NewNop())
	if v1 != 99.9 || v2 != 0 || v3 != 0 {
		t.Errorf("lista única deve preencher só v1, veio (%v, %v, %v)", v1, v2, v3)
	}

	v1, _, _ = PrecosPorLista(nil, zap.NewNop())
	if v1 != 0 {
		t.Errorf("sem itens esperava v1 = 0, veio %v", v1)
	}
}
