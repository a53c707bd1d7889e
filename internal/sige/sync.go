package sige

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casadaspecas/app-catalogo-api/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// erpListagem é o recorte do cliente SIGE que a sincronização usa
type erpListagem interface {
	ListarProdutos(ctx context.Context) ([]map[string]any, error)
}

// catalogoLister entrega o universo de SKUs do catálogo
type catalogoLister interface {
	ListarTodosProdutos(ctx context.Context) ([]models.Produto, error)
}

// SyncOptions controla uma sincronização em massa
type SyncOptions struct {
	// BuscarEstoques aquece o cache de estoque dos SKUs mapeados
	BuscarEstoques bool
	// LimparExistentes descarta todos os mapeamentos antes de casar de novo
	LimparExistentes bool
}

// Sincronizador casa todos os SKUs do catálogo com o cadastro completo
// do ERP de uma vez, em memória, em vez de uma cascata de chamadas por
// SKU. As estratégias espelham as da cascata individual.
type Sincronizador struct {
	erp         erpListagem
	catalogo    catalogoLister
	mapeamentos *MappingStore
	resolver    *Resolver
	logger      *zap.Logger
	agora       func() time.Time
}

func NewSincronizador(erp erpListagem, catalogo catalogoLister, mapeamentos *MappingStore, resolver *Resolver, logger *zap.Logger) *Sincronizador {
	return &Sincronizador{
		erp:         erp,
		catalogo:    catalogo,
		mapeamentos: mapeamentos,
		resolver:    resolver,
		logger:      logger,
		agora:       time.Now,
	}
}

// Sincronizar executa o casamento em massa e devolve o relatório
func (s *Sincronizador) Sincronizar(ctx context.Context, opts SyncOptions) (*models.SyncReport, error) {
	ctx, span := tracer.Start(ctx, "Sincronizador.Sincronizar")
	defer span.End()
	inicio := s.agora()

	if opts.LimparExistentes {
		n, err := s.mapeamentos.LimparTudo()
		if err != nil {
			return nil, fmt.Errorf("falha ao limpar mapeamentos: %w", err)
		}
		s.logger.Info("sige: mapeamentos existentes descartados", zap.Int("removidos", n))
	}

	produtos, err := s.catalogo.ListarTodosProdutos(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar o catálogo: %w", err)
	}
	itensERP, err := s.erp.ListarProdutos(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar produtos do SIGE: %w", err)
	}

	indice := novoIndiceERP(itensERP)

	existentes := map[string]string{}
	if salvos, err := s.mapeamentos.Listar(); err == nil {
		for _, m := range salvos {
			existentes[m.SKU] = m.MatchType
		}
	}

	relatorio := &models.SyncReport{
		Total:         len(produtos),
		PorEstrategia: map[string]int{},
	}
	var mapeados []string

	for _, p := range produtos {
		// mapeamentos já salvos, manuais inclusive, ficam como estão
		if tipo, ok := existentes[p.SKU]; ok {
			relatorio.Mapeados++
			relatorio.PorEstrategia[tipo]++
			mapeados = append(mapeados, p.SKU)
			continue
		}

		c, tipo, ok := indice.casar(p.SKU)
		if !ok {
			relatorio.SemCorrespondencia = append(relatorio.SemCorrespondencia, p.SKU)
			continue
		}

		s.resolver.salvarMapeamentoDescoberto(p.SKU, c, tipo)
		relatorio.Mapeados++
		relatorio.PorEstrategia[tipo]++
		mapeados = append(mapeados, p.SKU)
	}

	if opts.BuscarEstoques && len(mapeados) > 0 {
		s.logger.Info("sige: aquecendo cache de estoque dos SKUs mapeados", zap.Int("skus", len(mapeados)))
		s.resolver.EstoqueEmLote(ctx, mapeados, true)
	}

	relatorio.DuracaoMs = s.agora().Sub(inicio).Milliseconds()
	span.SetAttributes(
		attribute.Int("sync.total", relatorio.Total),
		attribute.Int("sync.mapeados", relatorio.Mapeados),
	)
	s.logger.Info("sige: sincronização concluída",
		zap.Int("total", relatorio.Total),
		zap.Int("mapeados", relatorio.Mapeados),
		zap.Int("semCorrespondencia", len(relatorio.SemCorrespondencia)),
		zap.Int64("duracaoMs", relatorio.DuracaoMs),
	)
	return relatorio, nil
}

// indiceERP guarda o cadastro do ERP sob as chaves que as estratégias
// consultam; primeiro-visto-vence em colisão
type indiceERP struct {
	porCod      map[string]candidato
	porCodLimpo map[string]candidato
	porSemZeros map[string]candidato
	porID       map[string]candidato
}

func novoIndiceERP(itens []map[string]any) *indiceERP {
	idx := &indiceERP{
		porCod:      map[string]candidato{},
		porCodLimpo: map[string]candidato{},
		porSemZeros: map[string]candidato{},
		porID:       map[string]candidato{},
	}
	for _, item := range itens {
		c := candidato{
			id:        ExtrairID(item),
			cod:       ExtrairCodProduto(item),
			descricao: ExtrairDescricao(item),
		}
		if c.id == "" && c.cod == "" {
			continue
		}
		if c.cod != "" {
			cod := strings.ToUpper(c.cod)
			guardar(idx.porCod, cod, c)
			limpo := removerSeparadores(cod)
			guardar(idx.porCodLimpo, limpo, c)
			if semZeros := strings.TrimLeft(limpo, "0"); semZeros != "" {
				guardar(idx.porSemZeros, semZeros, c)
			}
		}
		if c.id != "" {
			guardar(idx.porID, c.id, c)
		}
	}
	return idx
}

func guardar(m map[string]candidato, chave string, c candidato) {
	if _, ocupada := m[chave]; !ocupada {
		m[chave] = c
	}
}

// casar tenta as estratégias em ordem de confiança decrescente
func (idx *indiceERP) casar(sku string) (candidato, string, bool) {
	skuUpper := strings.ToUpper(strings.TrimSpace(sku))
	if skuUpper == "" {
		return candidato{}, "", false
	}
	limpo := removerSeparadores(skuUpper)

	if c, ok := idx.porCod[skuUpper]; ok {
		return c, models.MatchExactCod, true
	}
	if c, ok := idx.porCodLimpo[limpo]; ok {
		return c, models.MatchCleanCod, true
	}
	if semZeros := strings.TrimLeft(limpo, "0"); semZeros != "" {
		if c, ok := idx.porSemZeros[semZeros]; ok {
			return c, models.MatchNoZeros, true
		}
	}
	if c, ok := idx.porID[sku]; ok {
		return c, models.MatchSigeID, true
	}
	if base, _, ok := strings.Cut(skuUpper, "-"); ok && base != "" {
		if c, okBase := idx.porCod[base]; okBase {
			return c, models.MatchBaseDash, true
		}
		if c, okBase := idx.porCodLimpo[removerSeparadores(base)]; okBase {
			return c, models.MatchBaseDash, true
		}
	}
	return candidato{}, "", false
}
