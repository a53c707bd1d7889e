package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/casadaspecas/app-catalogo-api/internal/models"

	"go.uber.org/zap"
)

// catalogoFalso devolve sempre o mesmo lote e registra as condições
type catalogoFalso struct {
	produtos  []models.Produto
	total     int
	erro      error
	chamadas  int
	condicoes []string
}

func (c *catalogoFalso) BuscarProdutos(_ context.Context, condicao string, _, _ int) ([]models.Produto, int, error) {
	c.chamadas++
	c.condicoes = append(c.condicoes, condicao)
	if c.erro != nil {
		return nil, 0, c.erro
	}
	if c.total > 0 {
		return c.produtos, c.total, nil
	}
	return c.produtos, len(c.produtos), nil
}

func novoEngineDeTeste(produtos []models.Produto) (*Engine, *catalogoFalso) {
	cat := &catalogoFalso{produtos: produtos}
	return NewEngine(cat, NewSearchCache(time.Minute, 100), zap.NewNop()), cat
}

func TestAutocompleteRanqueia(t *testing.T) {
	e, _ := novoEngineDeTeste([]models.Produto{
		{SKU: "FA-456", Titulo: "Filtro de Ar Esportivo"},
		{SKU: "FO-123", Titulo: "Filtro de Óleo Motor XPTO"},
	})

	resposta, err := e.Autocomplete(context.Background(), "filtro oleo", 10)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if resposta.TotalMatches != 2 {
		t.Fatalf("totalMatches = %d, esperava 2", resposta.TotalMatches)
	}

	// todos os tokens presentes só no primeiro: deve vir na frente
	if resposta.Results[0].SKU != "FO-123" {
		t.Errorf("primeiro resultado = %s, esperava FO-123", resposta.Results[0].SKU)
	}
	if resposta.Results[0].Score <= resposta.Results[1].Score {
		t.Errorf("pontuações fora de ordem: %d <= %d", resposta.Results[0].Score, resposta.Results[1].Score)
	}
}

func TestAutocompleteConsultaCurta(t *testing.T) {
	e, cat := novoEngineDeTeste(nil)

	if _, err := e.Autocomplete(context.Background(), "a", 10); !errors.Is(err, ErrConsultaCurta) {
		t.Errorf("esperava ErrConsultaCurta, veio %v", err)
	}
	if cat.chamadas != 0 {
		t.Error("consulta curta não deve chegar ao catálogo")
	}
}

func TestBuscaExcluiPontuacaoZero(t *testing.T) {
	e, _ := novoEngineDeTeste([]models.Produto{
		{SKU: "FO-123", Titulo: "Filtro de Óleo Motor XPTO"},
		{SKU: "PR-999", Titulo: "Parafuso Sextavado M8"},
	})

	resposta, err := e.Busca(context.Background(), "filtro oleo", 1, 20, "")
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if resposta.TotalCount != 1 {
		t.Fatalf("totalCount = %d, esperava 1 (zero score fora do ranking)", resposta.TotalCount)
	}
	for _, r := range resposta.Results {
		if r.Score <= 0 {
			t.Errorf("resultado com pontuação %d não deveria aparecer", r.Score)
		}
	}
}

func TestBuscaPaginacao(t *testing.T) {
	e, _ := novoEngineDeTeste([]models.Produto{
		{SKU: "FO-1", Titulo: "Filtro de Óleo A"},
		{SKU: "FO-2", Titulo: "Filtro de Óleo B"},
		{SKU: "FO-3", Titulo: "Filtro de Óleo C"},
	})

	primeira, err := e.Busca(context.Background(), "filtro de oleo", 1, 2, "")
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	segunda, err := e.Busca(context.Background(), "filtro de oleo", 2, 2, "")
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if len(primeira.Results) != 2 || len(segunda.Results) != 1 {
		t.Fatalf("páginas com tamanhos (%d, %d), esperava (2, 1)", len(primeira.Results), len(segunda.Results))
	}
	if primeira.TotalCount != 3 || segunda.TotalCount != 3 {
		t.Errorf("totalCount deve ser 3 nas duas páginas")
	}
	if primeira.Results[0].SKU == segunda.Results[0].SKU {
		t.Error("páginas diferentes não devem repetir resultados")
	}
}

func TestBuscaComCategoria(t *testing.T) {
	e, cat := novoEngineDeTeste([]models.Produto{
		{SKU: "FO-1", Titulo: "Filtro de Óleo"},
	})

	if _, err := e.Busca(context.Background(), "filtro", 1, 20, "Filtros e Lubrificação"); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	condicao := cat.condicoes[0]
	if !strings.HasPrefix(condicao, "and(") {
		t.Errorf("categoria deve embrulhar a condição em and(...): %s", condicao)
	}
	if !strings.Contains(condicao, "categoria.eq.filtros e lubrificacao") {
		t.Errorf("condição sem o filtro de categoria normalizado: %s", condicao)
	}
}

func TestBuscaUsaCache(t *testing.T) {
	e, cat := novoEngineDeTeste([]models.Produto{
		{SKU: "FO-1", Titulo: "Filtro de Óleo"},
	})

	if _, err := e.Busca(context.Background(), "filtro", 1, 20, ""); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if _, err := e.Busca(context.Background(), "filtro", 1, 20, ""); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if cat.chamadas != 1 {
		t.Errorf("segunda busca idêntica deveria sair do cache, houve %d chamadas", cat.chamadas)
	}
}

func TestBuscaJanelaSaturadaReportaTotalDoCatalogo(t *testing.T) {
	// a janela inteira volta preenchida e o catálogo diz que há mais:
	// o total exato do catálogo prevalece sobre a contagem local
	produtos := make([]models.Produto, janelaRanqueamento)
	for i := range produtos {
		produtos[i] = models.Produto{
			SKU:    fmt.Sprintf("FO-%03d", i),
			Titulo: fmt.Sprintf("Filtro de Óleo %03d", i),
		}
	}
	cat := &catalogoFalso{produtos: produtos, total: 450}
	e := NewEngine(cat, NewSearchCache(time.Minute, 100), zap.NewNop())

	resposta, err := e.Busca(context.Background(), "filtro de oleo", 1, 20, "")
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if resposta.TotalCount != 450 {
		t.Errorf("totalCount = %d, esperava 450 com a janela saturada", resposta.TotalCount)
	}
	if len(resposta.Results) != 20 {
		t.Errorf("página com %d resultados, esperava 20", len(resposta.Results))
	}

	auto, err := e.Autocomplete(context.Background(), "filtro de oleo", 10)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if auto.TotalMatches != 450 {
		t.Errorf("totalMatches = %d, esperava 450 com a janela saturada", auto.TotalMatches)
	}
}

func TestBuscaCancelada(t *testing.T) {
	cat := &catalogoFalso{erro: context.Canceled}
	e := NewEngine(cat, NewSearchCache(time.Minute, 100), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Busca(ctx, "filtro", 1, 20, ""); !errors.Is(err, ErrBuscaCancelada) {
		t.Errorf("esperava ErrBuscaCancelada, veio %v", err)
	}
}

func TestBuscaCatalogoIndisponivel(t *testing.T) {
	cat := &catalogoFalso{erro: errors.New("connection refused")}
	e := NewEngine(cat, NewSearchCache(time.Minute, 100), zap.NewNop())

	if _, err := e.Busca(context.Background(), "filtro", 1, 20, ""); !errors.Is(err, ErrCatalogoFalhou) {
		t.Errorf("esperava ErrCatalogoFalhou, veio %v", err)
	}
}
