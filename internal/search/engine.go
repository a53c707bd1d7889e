// Package search é o motor de busca do catálogo: interpreta a consulta
// do usuário, pede ao catálogo uma janela larga de candidatos via as
// condições com curinga e re-ranqueia localmente com o pontuador fuzzy.
package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/casadaspecas/app-catalogo-api/internal/models"
	"github.com/casadaspecas/app-catalogo-api/internal/search/query"
	"github.com/casadaspecas/app-catalogo-api/internal/search/ranking"
	"github.com/casadaspecas/app-catalogo-api/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("search")

const (
	// consultas com menos de 2 caracteres úteis são rejeitadas
	minConsulta = 2

	// quantos candidatos trazemos do catálogo para re-ranquear; o
	// ranqueamento é local, então a janela precisa ser maior que a
	// página pedida
	janelaRanqueamento = 200

	limiteAutocompletePadrao = 10
	porPaginaPadrao          = 20
	porPaginaMax             = 100
)

// catalogo é o recorte do cliente PostgREST que o motor usa
type catalogo interface {
	BuscarProdutos(ctx context.Context, condicao string, offset, limit int) ([]models.Produto, int, error)
}

// Engine executa as buscas de autocomplete e de catálogo
type Engine struct {
	catalogo catalogo
	parser   *query.Parser
	builder  *query.Builder
	scorer   *ranking.Scorer
	cache    *SearchCache
	logger   *zap.Logger
}

// NewEngine cria o motor de busca
func NewEngine(cat catalogo, cache *SearchCache, logger *zap.Logger) *Engine {
	return &Engine{
		catalogo: cat,
		parser:   query.NewParser(),
		builder:  query.NewBuilder(),
		scorer:   ranking.NewScorer(),
		cache:    cache,
		logger:   logger,
	}
}

// Autocomplete devolve os melhores resultados para a digitação parcial
func (e *Engine) Autocomplete(ctx context.Context, consulta string, limite int) (*models.AutocompleteResponse, error) {
	ctx, span := tracer.Start(ctx, "Engine.Autocomplete")
	defer span.End()

	if limite <= 0 || limite > porPaginaMax {
		limite = limiteAutocompletePadrao
	}

	parsed := e.parser.Parse(consulta)
	if len(parsed.Normalized) < minConsulta {
		return nil, ErrConsultaCurta
	}

	chave := e.cache.GenerateKey("autocomplete", parsed.Normalized, strconv.Itoa(limite))
	if cached, ok := e.cache.Get(chave).(*models.AutocompleteResponse); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	inicio := time.Now()
	condicao := e.builder.BuildCondition(parsed, query.ModeAutocomplete)
	produtos, total, err := e.catalogo.BuscarProdutos(ctx, condicao, 0, janelaRanqueamento)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrBuscaCancelada
		}
		return nil, fmt.Errorf("%w: %v", ErrCatalogoFalhou, err)
	}

	ranqueados := e.ranquear(parsed, produtos)
	resposta := &models.AutocompleteResponse{
		Results:      recortar(ranqueados, 0, limite),
		TotalMatches: e.totalEstimado(parsed.Normalized, total, len(produtos), len(ranqueados)),
	}

	e.logger.Debug("autocomplete executado",
		zap.String("consulta", parsed.Normalized),
		zap.Int("candidatos", len(produtos)),
		zap.Int("resultados", len(ranqueados)),
		zap.Duration("duracao", time.Since(inicio)),
	)

	e.cache.Set(chave, resposta)
	return resposta, nil
}

// Busca devolve uma página do catálogo ranqueada pela relevância.
// A categoria, quando informada, restringe a condição enviada ao
// catálogo antes do ranqueamento.
func (e *Engine) Busca(ctx context.Context, consulta string, pagina, porPagina int, categoria string) (*models.BuscaResponse, error) {
	ctx, span := tracer.Start(ctx, "Engine.Busca")
	defer span.End()

	if pagina <= 0 {
		pagina = 1
	}
	if porPagina <= 0 {
		porPagina = porPaginaPadrao
	}
	if porPagina > porPaginaMax {
		porPagina = porPaginaMax
	}

	parsed := e.parser.Parse(consulta)
	if len(parsed.Normalized) < minConsulta {
		return nil, ErrConsultaCurta
	}

	chave := e.cache.GenerateKey("busca", parsed.Normalized, categoria,
		strconv.Itoa(pagina), strconv.Itoa(porPagina))
	if cached, ok := e.cache.Get(chave).(*models.BuscaResponse); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	condicao := e.builder.BuildCondition(parsed, query.ModeCatalog)
	if categoria != "" {
		condicao = fmt.Sprintf("and(%s,categoria.eq.%s)", condicao, utils.NormalizarCategoria(categoria))
	}

	produtos, total, err := e.catalogo.BuscarProdutos(ctx, condicao, 0, janelaRanqueamento)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrBuscaCancelada
		}
		return nil, fmt.Errorf("%w: %v", ErrCatalogoFalhou, err)
	}

	ranqueados := e.ranquear(parsed, produtos)
	resposta := &models.BuscaResponse{
		Results:    recortar(ranqueados, (pagina-1)*porPagina, porPagina),
		Query:      consulta,
		Page:       pagina,
		PerPage:    porPagina,
		TotalCount: e.totalEstimado(parsed.Normalized, total, len(produtos), len(ranqueados)),
	}

	e.cache.Set(chave, resposta)
	return resposta, nil
}

// totalEstimado escolhe o total reportado ao cliente. Dentro da
// janela de ranqueamento a contagem pós-pontuação é exata; com a
// janela saturada o total do catálogo (Prefer: count=exact) é a
// melhor estimativa, já que os candidatos além da janela nunca foram
// pontuados.
func (e *Engine) totalEstimado(consulta string, totalCatalogo, candidatos, ranqueados int) int {
	if candidatos < janelaRanqueamento || totalCatalogo <= candidatos {
		return ranqueados
	}
	e.logger.Warn("janela de ranqueamento saturada, total reportado pelo catálogo",
		zap.String("consulta", consulta),
		zap.Int("janela", janelaRanqueamento),
		zap.Int("total_catalogo", totalCatalogo),
	)
	return totalCatalogo
}

// ranquear pontua cada candidato, descarta os de pontuação zero e
// ordena por pontuação decrescente com desempate pelo título
func (e *Engine) ranquear(parsed *query.ParsedQuery, produtos []models.Produto) []models.MatchResult {
	resultados := make([]models.MatchResult, 0, len(produtos))
	for _, p := range produtos {
		score := e.scorer.Pontuar(parsed, p.Titulo, p.SKU)
		if score <= 0 {
			continue
		}
		resultados = append(resultados, models.MatchResult{
			SKU:       p.SKU,
			Titulo:    p.Titulo,
			Score:     score,
			MatchType: string(e.scorer.Classificar(parsed, p.Titulo, p.SKU, score)),
		})
	}

	sort.SliceStable(resultados, func(i, j int) bool {
		if resultados[i].Score != resultados[j].Score {
			return resultados[i].Score > resultados[j].Score
		}
		return resultados[i].Titulo < resultados[j].Titulo
	})
	return resultados
}

func recortar(resultados []models.MatchResult, offset, limite int) []models.MatchResult {
	if offset >= len(resultados) {
		return []models.MatchResult{}
	}
	fim := offset + limite
	if fim > len(resultados) {
		fim = len(resultados)
	}
	return resultados[offset:fim]
}
