package sige

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/casadaspecas/app-catalogo-api/internal/models"
	"github.com/casadaspecas/app-catalogo-api/internal/storage"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TTLs dos snapshots. Um resultado negativo expira antes de um
// positivo para que produtos recém-cadastrados no ERP apareçam logo.
const (
	ttlEstoqueEncontrado = 5 * time.Minute
	ttlPrecoEncontrado   = 10 * time.Minute
	ttlNaoEncontrado     = 2 * time.Minute
)

// lotes de resolução rodam no máximo 5 consultas simultâneas para não
// sobrecarregar o ERP
const limiteLote = 5

// máximo de produtos considerados por estratégia de busca
const maxCandidatos = 5

// erpAPI é o recorte do cliente SIGE que a cascata usa
type erpAPI interface {
	BuscarPorCodigo(ctx context.Context, codProduto string) ([]map[string]any, error)
	BuscarPorReferencia(ctx context.Context, referencia string) ([]map[string]any, error)
	BuscarPorDescricao(ctx context.Context, descricao string) ([]map[string]any, error)
	Saldo(ctx context.Context, id string) ([]map[string]any, error)
	ItensListaPreco(ctx context.Context, codProduto string) ([]map[string]any, error)
}

// candidato é um produto do ERP apontado por alguma estratégia
type candidato struct {
	id        string
	cod       string
	descricao string
}

// estrategia é um passo da cascata de identidade. O tipo, quando não
// vazio, é gravado no mapeamento descoberto por ela.
type estrategia struct {
	nome  string
	tipo  string
	busca func(ctx context.Context, sku string) ([]candidato, error)
}

// Resolver liga SKUs do catálogo a produtos do SIGE e mantém os
// snapshots de estoque e preço em cache. As respostas são sempre
// estruturadas: indisponibilidade do ERP vira Sige=false no snapshot,
// nunca um erro para o chamador.
type Resolver struct {
	erp         erpAPI
	mapeamentos *MappingStore
	kv          *storage.KV
	logger      *zap.Logger
	agora       func() time.Time

	estrategias []estrategia
}

func NewResolver(erp erpAPI, mapeamentos *MappingStore, kv *storage.KV, logger *zap.Logger) *Resolver {
	r := &Resolver{
		erp:         erp,
		mapeamentos: mapeamentos,
		kv:          kv,
		logger:      logger,
		agora:       time.Now,
	}

	// ordem importa: a primeira estratégia que apontar um produto com
	// dados utilizáveis encerra a cascata
	r.estrategias = []estrategia{
		{nome: "mapeamento-salvo", busca: r.porMapeamentoSalvo},
		{nome: "sku-como-id", tipo: models.MatchSigeID, busca: r.porSkuComoID},
		{nome: "cod-produto-exato", tipo: models.MatchExactCod, busca: r.porCodigoExato},
		{nome: "base-antes-do-hifen", tipo: models.MatchBaseDash, busca: r.porBaseDoHifen},
		{nome: "cod-sem-separadores", tipo: models.MatchCleanCod, busca: r.porCodigoLimpo},
		{nome: "referencia", busca: r.porReferencia},
		{nome: "descricao", busca: r.porDescricao},
	}
	return r
}

// Estoque resolve o saldo de um SKU, servindo do cache quando o
// snapshot ainda está dentro do TTL da sua classe
func (r *Resolver) Estoque(ctx context.Context, sku string, forcarAtualizacao bool) *models.BalanceSnapshot {
	ctx, span := tracer.Start(ctx, "Resolver.Estoque")
	defer span.End()
	span.SetAttributes(attribute.String("sku", sku))

	if !forcarAtualizacao {
		if snap, ok := r.lerCacheEstoque(sku); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return snap
		}
	}

	snap := r.resolverEstoque(ctx, sku)

	// snapshots com Sige=false vêm de falha de infraestrutura e não
	// entram no cache: a próxima chamada tenta de novo
	if snap.Sige {
		if err := r.kv.SetJSON(prefixoEstoque+sku, snap); err != nil {
			r.logger.Warn("sige: falha ao gravar cache de estoque", zap.String("sku", sku), zap.Error(err))
		}
	}
	return snap
}

func (r *Resolver) resolverEstoque(ctx context.Context, sku string) *models.BalanceSnapshot {
	agoraMs := r.agora().UnixMilli()

	var (
		produtoVisto  *candidato
		tipoVisto     string
		falhaUpstream bool
	)

	for _, e := range r.estrategias {
		// uma estratégia pode devolver candidatos junto com o erro
		// (a base antes do hífen vale como id mesmo com a busca por
		// código fora do ar), então o erro não descarta a lista
		candidatos, err := e.busca(ctx, sku)
		if err != nil && !errors.Is(err, ErrNaoEncontrado) {
			r.logger.Warn("sige: estratégia falhou",
				zap.String("sku", sku),
				zap.String("estrategia", e.nome),
				zap.Error(err),
			)
			falhaUpstream = true
		}

		// cada candidato tem o saldo consultado antes de passarmos à
		// próxima estratégia
		for _, c := range candidatos {
			if c.id == "" {
				continue
			}
			itens, err := r.erp.Saldo(ctx, c.id)
			if err != nil {
				if !errors.Is(err, ErrNaoEncontrado) {
					falhaUpstream = true
				}
				continue
			}

			// o endpoint respondeu: o produto existe, mesmo que sem linhas
			if produtoVisto == nil {
				cc := c
				produtoVisto = &cc
				tipoVisto = e.tipo
			}

			if snap := montarSnapshotEstoque(sku, itens, agoraMs); snap != nil {
				r.salvarMapeamentoDescoberto(sku, c, e.tipo)
				r.logger.Debug("sige: estoque resolvido",
					zap.String("sku", sku),
					zap.String("estrategia", e.nome),
					zap.Float64("quantidade", snap.Quantidade),
				)
				return snap
			}
		}
	}

	// produto localizado mas sem nenhuma linha de saldo: estoque zero,
	// não um não-encontrado
	if produtoVisto != nil {
		r.salvarMapeamentoDescoberto(sku, *produtoVisto, tipoVisto)
		return &models.BalanceSnapshot{SKU: sku, Found: true, Sige: true, CachedAt: agoraMs}
	}

	return &models.BalanceSnapshot{SKU: sku, Found: false, Sige: !falhaUpstream, CachedAt: agoraMs}
}

// Preco resolve o preço de tabela de um SKU
func (r *Resolver) Preco(ctx context.Context, sku string) *models.PriceSnapshot {
	ctx, span := tracer.Start(ctx, "Resolver.Preco")
	defer span.End()
	span.SetAttributes(attribute.String("sku", sku))

	if snap, ok := r.lerCachePreco(sku); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return snap
	}

	snap := r.resolverPreco(ctx, sku)
	if snap.Sige {
		if err := r.kv.SetJSON(prefixoPreco+sku, snap); err != nil {
			r.logger.Warn("sige: falha ao gravar cache de preço", zap.String("sku", sku), zap.Error(err))
		}
	}
	return snap
}

func (r *Resolver) resolverPreco(ctx context.Context, sku string) *models.PriceSnapshot {
	agoraMs := r.agora().UnixMilli()

	var falhaUpstream bool
	codigosVistos := map[string]bool{}

	for _, e := range r.estrategias {
		candidatos, err := e.busca(ctx, sku)
		if err != nil && !errors.Is(err, ErrNaoEncontrado) {
			falhaUpstream = true
		}

		for _, c := range candidatos {
			if c.cod == "" || codigosVistos[c.cod] {
				continue
			}
			codigosVistos[c.cod] = true

			itens, err := r.erp.ItensListaPreco(ctx, c.cod)
			if err != nil {
				if !errors.Is(err, ErrNaoEncontrado) {
					falhaUpstream = true
				}
				continue
			}

			v1, v2, v3 := PrecosPorLista(itens, r.logger)
			if v1 == 0 && v2 == 0 && v3 == 0 {
				continue
			}
			r.salvarMapeamentoDescoberto(sku, c, e.tipo)
			return &models.PriceSnapshot{
				SKU: sku, Found: true, Sige: true,
				Preco: v1, V1: v1, V2: v2, V3: v3,
				CachedAt: agoraMs,
			}
		}
	}

	return &models.PriceSnapshot{SKU: sku, Found: false, Sige: !falhaUpstream, CachedAt: agoraMs}
}

// EstoqueEmLote resolve vários SKUs com concorrência limitada. A falha
// de um SKU nunca derruba o lote: cada resultado é independente.
func (r *Resolver) EstoqueEmLote(ctx context.Context, skus []string, forcarAtualizacao bool) map[string]*models.BalanceSnapshot {
	ctx, span := tracer.Start(ctx, "Resolver.EstoqueEmLote")
	defer span.End()
	span.SetAttributes(attribute.Int("lote.tamanho", len(skus)))

	var mu sync.Mutex
	resultados := make(map[string]*models.BalanceSnapshot, len(skus))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limiteLote)
	for _, sku := range skus {
		sku := sku
		g.Go(func() error {
			snap := r.Estoque(ctx, sku, forcarAtualizacao)
			mu.Lock()
			resultados[sku] = snap
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return resultados
}

// --- estratégias da cascata ---

func (r *Resolver) porMapeamentoSalvo(_ context.Context, sku string) ([]candidato, error) {
	mapeamento, err := r.mapeamentos.Obter(sku)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNaoEncontrado
		}
		return nil, err
	}
	return []candidato{{
		id:        strconv.FormatInt(mapeamento.SigeID, 10),
		cod:       mapeamento.CodProduto,
		descricao: mapeamento.Descricao,
	}}, nil
}

func (r *Resolver) porSkuComoID(_ context.Context, sku string) ([]candidato, error) {
	return []candidato{{id: sku, cod: sku}}, nil
}

func (r *Resolver) porCodigoExato(ctx context.Context, sku string) ([]candidato, error) {
	itens, err := r.erp.BuscarPorCodigo(ctx, sku)
	if err != nil {
		return nil, err
	}
	return candidatosDosItens(itens), nil
}

func (r *Resolver) porBaseDoHifen(ctx context.Context, sku string) ([]candidato, error) {
	base, _, ok := strings.Cut(sku, "-")
	if !ok || base == "" {
		return nil, ErrNaoEncontrado
	}

	// repete as estratégias de id direto e código exato com a base.
	// Com a busca por código fora do ar o candidato base-como-id
	// segue valendo, então ele acompanha o erro.
	candidatos := []candidato{{id: base, cod: base}}
	itens, err := r.erp.BuscarPorCodigo(ctx, base)
	if err != nil && !errors.Is(err, ErrNaoEncontrado) {
		return candidatos, err
	}
	return append(candidatos, candidatosDosItens(itens)...), nil
}

func (r *Resolver) porCodigoLimpo(ctx context.Context, sku string) ([]candidato, error) {
	limpo := removerSeparadores(sku)
	if limpo == "" || limpo == sku {
		return nil, ErrNaoEncontrado
	}
	itens, err := r.erp.BuscarPorCodigo(ctx, limpo)
	if err != nil {
		return nil, err
	}
	return candidatosDosItens(itens), nil
}

func (r *Resolver) porReferencia(ctx context.Context, sku string) ([]candidato, error) {
	itens, err := r.erp.BuscarPorReferencia(ctx, sku)
	if err != nil {
		return nil, err
	}
	return candidatosDosItens(itens), nil
}

func (r *Resolver) porDescricao(ctx context.Context, sku string) ([]candidato, error) {
	itens, err := r.erp.BuscarPorDescricao(ctx, sku)
	if err != nil {
		return nil, err
	}
	return candidatosDosItens(itens), nil
}

// --- apoio ---

func candidatosDosItens(itens []map[string]any) []candidato {
	candidatos := make([]candidato, 0, len(itens))
	for _, item := range itens {
		c := candidato{
			id:        ExtrairID(item),
			cod:       ExtrairCodProduto(item),
			descricao: ExtrairDescricao(item),
		}
		if c.id == "" && c.cod == "" {
			continue
		}
		candidatos = append(candidatos, c)
		if len(candidatos) == maxCandidatos {
			break
		}
	}
	return candidatos
}

func removerSeparadores(sku string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '_', '/', ' ':
			return -1
		}
		return r
	}, sku)
}

// salvarMapeamentoDescoberto persiste o vínculo aprendido pela
// cascata. Estratégias sem tipo (mapeamento já salvo, buscas textuais)
// não geram mapeamento.
func (r *Resolver) salvarMapeamentoDescoberto(sku string, c candidato, tipo string) {
	if tipo == "" {
		return
	}
	sigeID, _ := strconv.ParseInt(c.id, 10, 64)
	mapeamento := &models.SkuMapping{
		SKU:        sku,
		SigeID:     sigeID,
		CodProduto: c.cod,
		Descricao:  c.descricao,
		MatchType:  tipo,
	}
	if err := r.mapeamentos.Salvar(mapeamento); err != nil {
		r.logger.Warn("sige: falha ao salvar mapeamento descoberto", zap.String("sku", sku), zap.Error(err))
	}
}

func (r *Resolver) lerCacheEstoque(sku string) (*models.BalanceSnapshot, bool) {
	var snap models.BalanceSnapshot
	if err := r.kv.GetJSON(prefixoEstoque+sku, &snap); err != nil {
		return nil, false
	}
	return &snap, r.dentroDoTTL(snap.CachedAt, snap.Found, ttlEstoqueEncontrado)
}

func (r *Resolver) lerCachePreco(sku string) (*models.PriceSnapshot, bool) {
	var snap models.PriceSnapshot
	if err := r.kv.GetJSON(prefixoPreco+sku, &snap); err != nil {
		return nil, false
	}
	return &snap, r.dentroDoTTL(snap.CachedAt, snap.Found, ttlPrecoEncontrado)
}

func (r *Resolver) dentroDoTTL(cachedAtMs int64, encontrado bool, ttlEncontrado time.Duration) bool {
	ttl := ttlEncontrado
	if !encontrado {
		ttl = ttlNaoEncontrado
	}
	return r.agora().Sub(time.UnixMilli(cachedAtMs)) <= ttl
}

// montarSnapshotEstoque agrega as linhas de saldo por depósito; nil
// quando nenhuma linha traz um número utilizável
func montarSnapshotEstoque(sku string, itens []map[string]any, agoraMs int64) *models.BalanceSnapshot {
	if len(itens) == 0 {
		return nil
	}

	var (
		total, disponivel, reservado float64
		locais                       []models.LocalEstoque
		achouDado                    bool
	)
	for _, item := range itens {
		q, okQ := ExtrairQuantidade(item)
		res, okR := ExtrairReservado(item)
		disp, okD := ExtrairDisponivel(item)
		if !okQ && !okR && !okD {
			continue
		}
		achouDado = true
		if !okD {
			disp = q - res
		}

		total += q
		reservado += res
		disponivel += disp
		locais = append(locais, models.LocalEstoque{
			Local:      ExtrairLocal(item),
			Quantidade: q,
			Disponivel: disp,
			Reservado:  res,
		})
	}
	if !achouDado {
		return nil
	}

	return &models.BalanceSnapshot{
		SKU:        sku,
		Found:      true,
		Sige:       true,
		Quantidade: total,
		Disponivel: disponivel,
		Reservado:  reservado,
		Locais:     locais,
		CachedAt:   agoraMs,
	}
}
