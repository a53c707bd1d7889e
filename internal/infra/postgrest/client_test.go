package postgrest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casadaspecas/app-catalogo-api/internal/infra/resilience"

	"go.uber.org/zap"
)

func novoClienteDeTeste(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond}
	cb := resilience.NewCircuitBreaker("catalogo-teste")
	c := NewClient(srv.Client(), srv.URL, "chave-teste", cb, cfg, zap.NewNop())
	return c, srv
}

func TestBuscarProdutos(t *testing.T) {
	var recebido *http.Request
	c, _ := novoClienteDeTeste(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recebido = r.Clone(context.Background())
		w.Header().Set("Content-Range", "0-1/42")
		w.WriteHeader(http.StatusPartialContent)
		fmt.Fprint(w, `[{"sku":"FO-123","titulo":"Filtro de Óleo"},{"sku":"FA-456","titulo":"Filtro de Ar"}]`)
	}))

	produtos, total, err := c.BuscarProdutos(context.Background(), "or(titulo.ilike.*filtro*,sku.ilike.*filtro*)", 0, 2)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if len(produtos) != 2 {
		t.Fatalf("esperava 2 produtos, veio %d", len(produtos))
	}
	if produtos[0].SKU != "FO-123" || produtos[0].Titulo != "Filtro de Óleo" {
		t.Errorf("primeiro produto incorreto: %+v", produtos[0])
	}
	if total != 42 {
		t.Errorf("esperava total 42 do Content-Range, veio %d", total)
	}

	if got := recebido.Header.Get("Range"); got != "0-1" {
		t.Errorf("cabeçalho Range = %q, esperava 0-1", got)
	}
	if got := recebido.Header.Get("Prefer"); got != "count=exact" {
		t.Errorf("cabeçalho Prefer = %q, esperava count=exact", got)
	}
	if got := recebido.Header.Get("apikey"); got != "chave-teste" {
		t.Errorf("cabeçalho apikey = %q", got)
	}
	if got := recebido.URL.Query().Get("or"); got != "(titulo.ilike.*filtro*,sku.ilike.*filtro*)" {
		t.Errorf("parâmetro or = %q", got)
	}
	if got := recebido.URL.Query().Get("order"); got != "titulo.asc" {
		t.Errorf("parâmetro order = %q", got)
	}
}

func TestBuscarProdutosSemContentRange(t *testing.T) {
	c, _ := novoClienteDeTeste(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"sku":"VE-1","titulo":"Vela de Ignição"}]`)
	}))

	produtos, total, err := c.BuscarProdutos(context.Background(), "or(titulo.ilike.*vela*)", 0, 10)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if total != len(produtos) {
		t.Errorf("sem Content-Range o total deve cair no tamanho da página: total=%d, produtos=%d", total, len(produtos))
	}
}

func TestBuscarProdutosErroDoServidor(t *testing.T) {
	chamadas := 0
	c, _ := novoClienteDeTeste(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chamadas++
		http.Error(w, `{"message":"erro interno"}`, http.StatusInternalServerError)
	}))

	_, _, err := c.BuscarProdutos(context.Background(), "or(titulo.ilike.*x*)", 0, 10)
	if err == nil {
		t.Fatal("esperava erro para resposta 500")
	}
	if chamadas != 2 {
		t.Errorf("esperava 2 tentativas (1 original + 1 retry), veio %d", chamadas)
	}
}

func TestListarTodosProdutosPaginado(t *testing.T) {
	// duas páginas: a primeira cheia, a segunda parcial encerra a varredura
	c, _ := novoClienteDeTeste(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var inicio int
		fmt.Sscanf(r.Header.Get("Range"), "%d-", &inicio)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[")
		n := paginaListagem
		if inicio > 0 {
			n = 3
		}
		for i := 0; i < n; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"sku":"SKU-%d","titulo":"Produto %d"}`, inicio+i, inicio+i)
		}
		fmt.Fprint(w, "]")
	}))

	produtos, err := c.ListarTodosProdutos(context.Background())
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if len(produtos) != paginaListagem+3 {
		t.Fatalf("esperava %d produtos, veio %d", paginaListagem+3, len(produtos))
	}
	if produtos[0].SKU != "SKU-0" || produtos[paginaListagem].SKU != fmt.Sprintf("SKU-%d", paginaListagem) {
		t.Error("paginação fora de ordem")
	}
}

func TestCondicaoParaQuery(t *testing.T) {
	casos := []struct {
		nome     string
		condicao string
		quer     string
	}{
		{"arvore or", "or(titulo.ilike.*a*,sku.ilike.*a*)", "or=" + "%28titulo.ilike.%2Aa%2A%2Csku.ilike.%2Aa%2A%29"},
		{"sem parenteses", "titulo.ilike.*a*", "titulo.ilike.*a*"},
	}
	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			if got := condicaoParaQuery(c.condicao); got != c.quer {
				t.Errorf("condicaoParaQuery(%q) = %q, esperava %q", c.condicao, got, c.quer)
			}
		})
	}
}
