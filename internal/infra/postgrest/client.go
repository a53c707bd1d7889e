// Package postgrest implementa o acesso ao catálogo de produtos via
// API PostgREST (Supabase). O catálogo é somente leitura para este
// serviço; escrita de produtos é responsabilidade do painel.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/casadaspecas/app-catalogo-api/internal/infra/resilience"
	"github.com/casadaspecas/app-catalogo-api/internal/models"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgrest")

// tamanho de página usado na varredura completa de SKUs
const paginaListagem = 1000

// Client encapsula as chamadas HTTP ao PostgREST do catálogo
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient cria um cliente do catálogo
func NewClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// doRequest executa uma requisição autenticada e devolve o corpo e o
// cabeçalho Content-Range (vazio quando ausente).
func (c *Client) doRequest(ctx context.Context, path string, headers map[string]string) ([]byte, string, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Error("postgrest: falha ao criar requisição",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, "", err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("postgrest: requisição falhou",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("postgrest: falha ao ler resposta",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, "", err
	}

	// 206 Partial Content é a resposta normal quando o header Range é usado
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("postgrest: resposta não-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, "", fmt.Errorf("postgrest retornou status %d: %s", resp.StatusCode, string(body))
	}

	return body, resp.Header.Get("Content-Range"), nil
}

// BuscarProdutos executa a condição de busca sobre a tabela de produtos
// e devolve a janela pedida junto com o total exato de correspondências.
// A condição vem do montador de consultas e tem a forma "or(...)".
func (c *Client) BuscarProdutos(ctx context.Context, condicao string, offset, limit int) ([]models.Produto, int, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.BuscarProdutos")
	defer span.End()
	span.SetAttributes(
		attribute.Int("busca.offset", offset),
		attribute.Int("busca.limit", limit),
	)

	var (
		produtos []models.Produto
		total    int
	)

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("produtos?select=sku,titulo&%s&order=titulo.asc", condicaoParaQuery(condicao))
			headers := map[string]string{
				"Range":      fmt.Sprintf("%d-%d", offset, offset+limit-1),
				"Range-Unit": "items",
				"Prefer":     "count=exact",
			}
			body, contentRange, err := c.doRequest(ctx, path, headers)
			if err != nil {
				return err
			}

			produtos = nil
			if err := json.Unmarshal(body, &produtos); err != nil {
				return fmt.Errorf("falha ao decodificar produtos: %w", err)
			}
			total = totalDoContentRange(contentRange, len(produtos))
			return nil
		})
	})
	if err != nil {
		return nil, 0, fmt.Errorf("busca no catálogo falhou: %w", err)
	}

	return produtos, total, nil
}

// ListarTodosProdutos varre o catálogo inteiro em páginas fixas.
// Usada pela reconciliação de importações e pela sincronização de
// mapeamentos, que precisam do universo completo de SKUs.
func (c *Client) ListarTodosProdutos(ctx context.Context) ([]models.Produto, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.ListarTodosProdutos")
	defer span.End()

	var todos []models.Produto
	offset := 0
	for {
		var pagina []models.Produto
		_, err := c.cb.Execute(func() (any, error) {
			return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
				path := "produtos?select=sku,titulo&order=sku.asc"
				headers := map[string]string{
					"Range": fmt.Sprintf("%d-%d", offset, offset+paginaListagem-1),
				}
				body, _, err := c.doRequest(ctx, path, headers)
				if err != nil {
					return err
				}
				pagina = nil
				return json.Unmarshal(body, &pagina)
			})
		})
		if err != nil {
			return nil, fmt.Errorf("listagem do catálogo falhou no offset %d: %w", offset, err)
		}

		todos = append(todos, pagina...)
		if len(pagina) < paginaListagem {
			break
		}
		offset += paginaListagem
	}

	span.SetAttributes(attribute.Int("catalogo.total", len(todos)))
	return todos, nil
}

// condicaoParaQuery converte "or(a,b)" na query string "or=(a,b)" que o
// PostgREST espera para árvores lógicas.
func condicaoParaQuery(condicao string) string {
	idx := strings.Index(condicao, "(")
	if idx < 0 {
		return condicao
	}
	return condicao[:idx] + "=" + url.QueryEscape(condicao[idx:])
}

// totalDoContentRange extrai o total de "0-9/123"; cai no tamanho da
// página quando o cabeçalho está ausente ou o total é desconhecido ("*").
func totalDoContentRange(contentRange string, fallback int) int {
	_, depois, ok := strings.Cut(contentRange, "/")
	if !ok || depois == "*" {
		return fallback
	}
	total, err := strconv.Atoi(depois)
	if err != nil {
		return fallback
	}
	return total
}
