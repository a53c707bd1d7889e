// Package sige integra o catálogo ao ERP SIGE: autenticação, busca de
// produtos, saldos de estoque e listas de preço, com a cascata de
// identidade e os caches descritos em resolver.go.
package sige

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/casadaspecas/app-catalogo-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("sige")

var (
	ErrNaoEncontrado = errors.New("produto não encontrado no SIGE")
	ErrNaoAutorizado = errors.New("SIGE recusou o token mesmo após reautenticação")
)

// página usada ao varrer o cadastro completo de produtos
const paginaProdutos = 200

// Client fala com a API REST do SIGE. Todas as chamadas carregam o
// bearer token da sessão; um 401 dispara uma única reautenticação
// seguida de uma única repetição da chamada.
type Client struct {
	httpClient *http.Client
	baseURL    string
	sessao     *SessionManager
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

func NewClient(httpClient *http.Client, baseURL string, sessao *SessionManager, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		sessao:     sessao,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// BuscarPorCodigo consulta GET /product?codProduto=
func (c *Client) BuscarPorCodigo(ctx context.Context, codProduto string) ([]map[string]any, error) {
	return c.buscarProdutos(ctx, url.Values{"codProduto": {codProduto}})
}

// BuscarPorReferencia consulta GET /product?referencia=
func (c *Client) BuscarPorReferencia(ctx context.Context, referencia string) ([]map[string]any, error) {
	return c.buscarProdutos(ctx, url.Values{"referencia": {referencia}})
}

// BuscarPorDescricao consulta GET /product?descProduto=
func (c *Client) BuscarPorDescricao(ctx context.Context, descricao string) ([]map[string]any, error) {
	return c.buscarProdutos(ctx, url.Values{"descProduto": {descricao}})
}

func (c *Client) buscarProdutos(ctx context.Context, query url.Values) ([]map[string]any, error) {
	query.Set("limit", strconv.Itoa(paginaProdutos))
	body, err := c.doAutenticado(ctx, "/product", query)
	if err != nil {
		return nil, err
	}
	return itensDaResposta(body), nil
}

// ListarProdutos varre o cadastro inteiro do ERP, página a página.
// Usada pela sincronização em massa de mapeamentos.
func (c *Client) ListarProdutos(ctx context.Context) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "SIGE.ListarProdutos")
	defer span.End()

	var todos []map[string]any
	offset := 0
	for {
		query := url.Values{
			"limit":  {strconv.Itoa(paginaProdutos)},
			"offset": {strconv.Itoa(offset)},
		}
		body, err := c.doAutenticado(ctx, "/product", query)
		if err != nil {
			return nil, fmt.Errorf("listagem de produtos falhou no offset %d: %w", offset, err)
		}

		pagina := itensDaResposta(body)
		todos = append(todos, pagina...)
		if len(pagina) < paginaProdutos {
			break
		}
		offset += paginaProdutos
	}
	return todos, nil
}

// Saldo consulta GET /product/{id}/balance. Um 404 vira
// ErrNaoEncontrado para a cascata seguir adiante.
func (c *Client) Saldo(ctx context.Context, id string) ([]map[string]any, error) {
	body, err := c.doAutenticado(ctx, "/product/"+url.PathEscape(id)+"/balance", nil)
	if err != nil {
		return nil, err
	}
	return itensDaResposta(body), nil
}

// ItensListaPreco consulta GET /list-price-items?codProduto=
func (c *Client) ItensListaPreco(ctx context.Context, codProduto string) ([]map[string]any, error) {
	body, err := c.doAutenticado(ctx, "/list-price-items", url.Values{"codProduto": {codProduto}})
	if err != nil {
		return nil, err
	}
	return itensDaResposta(body), nil
}

// doAutenticado executa um GET com o token da sessão. Em 401 invalida
// a sessão, reautentica e repete exatamente uma vez.
func (c *Client) doAutenticado(ctx context.Context, path string, query url.Values) ([]byte, error) {
	token, err := c.sessao.Token(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err := c.roundTrip(ctx, path, query, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		c.logger.Info("sige: 401 recebido, reautenticando", zap.String("path", path))
		c.sessao.Invalidar()
		token, err = c.sessao.Token(ctx)
		if err != nil {
			return nil, err
		}
		status, body, err = c.roundTrip(ctx, path, query, token)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, ErrNaoAutorizado
		}
	}

	switch {
	case status == http.StatusNotFound:
		return nil, ErrNaoEncontrado
	case status < 200 || status >= 300:
		c.logger.Warn("sige: resposta não-2xx",
			zap.String("path", path),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return nil, fmt.Errorf("sige retornou status %d: %s", status, string(body))
	}
	return body, nil
}

// roundTrip cobre só a camada de transporte com retry e circuit
// breaker; status 4xx voltam sem erro para o chamador decidir.
func (c *Client) roundTrip(ctx context.Context, path string, query url.Values, token string) (int, []byte, error) {
	var (
		status int
		body   []byte
	)
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			endpoint := c.baseURL + path
			if len(query) > 0 {
				endpoint += "?" + query.Encode()
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode >= 500 {
				return fmt.Errorf("sige retornou status %d: %s", resp.StatusCode, string(b))
			}
			status = resp.StatusCode
			body = b
			return nil
		})
	})
	if err != nil {
		return 0, nil, err
	}
	return status, body, nil
}

// itensDaResposta tolera os envelopes que o SIGE usa dependendo do
// endpoint: lista nua, objeto único ou envelope com a lista dentro.
func itensDaResposta(body []byte) []map[string]any {
	if len(body) == 0 {
		return nil
	}

	var lista []map[string]any
	if err := json.Unmarshal(body, &lista); err == nil {
		return lista
	}

	var objeto map[string]any
	if err := json.Unmarshal(body, &objeto); err != nil {
		return nil
	}
	for _, envelope := range []string{"data", "items", "itens", "results", "rows"} {
		bruto, ok := objeto[envelope].([]any)
		if !ok {
			continue
		}
		itens := make([]map[string]any, 0, len(bruto))
		for _, v := range bruto {
			if item, ok := v.(map[string]any); ok {
				itens = append(itens, item)
			}
		}
		return itens
	}
	return []map[string]any{objeto}
}
