package sige

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/casadaspecas/app-catalogo-api/internal/models"
	"github.com/casadaspecas/app-catalogo-api/internal/storage"

	"go.uber.org/zap"
)

// erpFalso responde em memória; cada mapa indexa pelo argumento da chamada
type erpFalso struct {
	porCodigo     map[string][]map[string]any
	porReferencia map[string][]map[string]any
	porDescricao  map[string][]map[string]any
	saldos        map[string][]map[string]any
	precos        map[string][]map[string]any
	chamadas      int
}

func (f *erpFalso) consultar(m map[string][]map[string]any, chave string) ([]map[string]any, error) {
	f.chamadas++
	if itens, ok := m[chave]; ok {
		return itens, nil
	}
	return nil, ErrNaoEncontrado
}

func (f *erpFalso) BuscarPorCodigo(_ context.Context, cod string) ([]map[string]any, error) {
	return f.consultar(f.porCodigo, cod)
}

func (f *erpFalso) BuscarPorReferencia(_ context.Context, ref string) ([]map[string]any, error) {
	return f.consultar(f.porReferencia, ref)
}

func (f *erpFalso) BuscarPorDescricao(_ context.Context, desc string) ([]map[string]any, error) {
	return f.consultar(f.porDescricao, desc)
}

func (f *erpFalso) Saldo(_ context.Context, id string) ([]map[string]any, error) {
	return f.consultar(f.saldos, id)
}

func (f *erpFalso) ItensListaPreco(_ context.Context, cod string) ([]map[string]any, error) {
	return f.consultar(f.precos, cod)
}

func novoResolverDeTeste(t *testing.T, erp erpAPI) (*Resolver, *storage.KV) {
	t.Helper()
	kv, err := storage.Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("falha ao abrir KV: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	logger := zap.NewNop()
	r := NewResolver(erp, NewMappingStore(kv, logger), kv, logger)
	return r, kv
}

func TestEstoqueCascataTermina(t *testing.T) {
	// nenhum produto existe no ERP sob nenhuma estratégia
	erp := &erpFalso{}
	r, kv := novoResolverDeTeste(t, erp)

	snap := r.Estoque(context.Background(), "ZZZ999", false)
	if snap.Found {
		t.Error("esperava Found = false")
	}
	if !snap.Sige {
		t.Error("todas as estratégias responderam; Sige deve ser true")
	}
	if snap.CachedAt == 0 {
		t.Error("snapshot deve carregar o timestamp")
	}

	// o não-encontrado é um resultado válido e cacheável
	if _, err := kv.Get(prefixoEstoque + "ZZZ999"); err != nil {
		t.Errorf("esperava snapshot negativo no cache: %v", err)
	}

	chamadasAntes := erp.chamadas
	r.Estoque(context.Background(), "ZZZ999", false)
	if erp.chamadas != chamadasAntes {
		t.Errorf("segunda consulta deveria sair do cache, mas fez %d chamadas", erp.chamadas-chamadasAntes)
	}
}

func TestEstoqueResolvePelaBaseDoHifen(t *testing.T) {
	// "112274376-01" não existe direto; a base antes do hífen existe
	erp := &erpFalso{
		saldos: map[string][]map[string]any{
			"112274376": {{"saldo": 7.0, "local": "Matriz"}},
		},
	}
	r, _ := novoResolverDeTeste(t, erp)

	snap := r.Estoque(context.Background(), "112274376-01", false)
	if !snap.Found {
		t.Fatal("esperava Found = true via base antes do hífen")
	}
	if snap.Quantidade != 7 {
		t.Errorf("quantidade = %v, esperava 7", snap.Quantidade)
	}
	if len(snap.Locais) != 1 || snap.Locais[0].Local != "Matriz" {
		t.Errorf("locais incorretos: %+v", snap.Locais)
	}

	// a cascata aprende o vínculo para as próximas resoluções
	mapeamento, err := r.mapeamentos.Obter("112274376-01")
	if err != nil {
		t.Fatalf("esperava mapeamento salvo: %v", err)
	}
	if mapeamento.MatchType != models.MatchBaseDash {
		t.Errorf("matchType = %q, esperava %q", mapeamento.MatchType, models.MatchBaseDash)
	}
	if mapeamento.SigeID != 112274376 {
		t.Errorf("sigeId = %d, esperava 112274376", mapeamento.SigeID)
	}
}

// erpBuscaQuebrada simula a busca por código fora do ar com o
// endpoint de saldo ainda respondendo
type erpBuscaQuebrada struct {
	*erpFalso
}

func (f *erpBuscaQuebrada) BuscarPorCodigo(context.Context, string) ([]map[string]any, error) {
	f.chamadas++
	return nil, errors.New("connection refused")
}

func TestEstoqueBaseDoHifenComBuscaForaDoAr(t *testing.T) {
	// a metade base-como-id da estratégia segue valendo mesmo quando
	// a busca por código falha no transporte
	erp := &erpBuscaQuebrada{erpFalso: &erpFalso{
		saldos: map[string][]map[string]any{
			"333": {{"saldo": 4.0, "local": "Matriz"}},
		},
	}}
	r, _ := novoResolverDeTeste(t, erp)

	snap := r.Estoque(context.Background(), "333-01", false)
	if !snap.Found {
		t.Fatal("esperava Found = true pela base como id")
	}
	if snap.Quantidade != 4 {
		t.Errorf("quantidade = %v, esperava 4", snap.Quantidade)
	}

	mapeamento, err := r.mapeamentos.Obter("333-01")
	if err != nil {
		t.Fatalf("esperava mapeamento salvo: %v", err)
	}
	if mapeamento.MatchType != models.MatchBaseDash {
		t.Errorf("matchType = %q, esperava %q", mapeamento.MatchType, models.MatchBaseDash)
	}
}

func TestEstoqueUsaMapeamentoSalvo(t *testing.T) {
	erp := &erpFalso{
		saldos: map[string][]map[string]any{
			"42": {{"quantidade": 3.0, "reservado": 1.0}},
		},
	}
	r, _ := novoResolverDeTeste(t, erp)

	if err := r.mapeamentos.Salvar(&models.SkuMapping{
		SKU: "PF-900", SigeID: 42, CodProduto: "PF900", MatchType: models.MatchManual,
	}); err != nil {
		t.Fatalf("falha ao salvar mapeamento: %v", err)
	}

	snap := r.Estoque(context.Background(), "PF-900", false)
	if !snap.Found {
		t.Fatal("esperava Found = true via mapeamento salvo")
	}
	if snap.Quantidade != 3 || snap.Reservado != 1 || snap.Disponivel != 2 {
		t.Errorf("saldo (%v, %v, %v), esperava (3, 1, 2)", snap.Quantidade, snap.Reservado, snap.Disponivel)
	}
	if erp.chamadas != 1 {
		t.Errorf("mapeamento salvo deve custar uma única chamada de saldo, custou %d", erp.chamadas)
	}
}

func TestEstoqueTTLAssimetrico(t *testing.T) {
	// snapshots com 3 minutos: o positivo ainda vale (TTL 5min), o
	// negativo já venceu (TTL 2min) e dispara nova cascata
	erp := &erpFalso{}
	r, kv := novoResolverDeTeste(t, erp)

	agora := time.Now()
	r.agora = func() time.Time { return agora }
	tresMinAtras := agora.Add(-3 * time.Minute).UnixMilli()

	kv.SetJSON(prefixoEstoque+"POSITIVO", &models.BalanceSnapshot{
		SKU: "POSITIVO", Found: true, Sige: true, Quantidade: 9, CachedAt: tresMinAtras,
	})
	kv.SetJSON(prefixoEstoque+"NEGATIVO", &models.BalanceSnapshot{
		SKU: "NEGATIVO", Found: false, Sige: true, CachedAt: tresMinAtras,
	})

	snap := r.Estoque(context.Background(), "POSITIVO", false)
	if !snap.Found || snap.Quantidade != 9 {
		t.Errorf("positivo de 3min deveria vir do cache: %+v", snap)
	}
	if erp.chamadas != 0 {
		t.Errorf("positivo no cache não deveria falar com o ERP, fez %d chamadas", erp.chamadas)
	}

	r.Estoque(context.Background(), "NEGATIVO", false)
	if erp.chamadas == 0 {
		t.Error("negativo de 3min já venceu e deveria disparar nova cascata")
	}
}

func TestEstoqueForcarAtualizacaoIgnoraCache(t *testing.T) {
	erp := &erpFalso{
		saldos: map[string][]map[string]any{"55": {{"saldo": 4.0}}},
	}
	r, kv := novoResolverDeTeste(t, erp)

	kv.SetJSON(prefixoEstoque+"55", &models.BalanceSnapshot{
		SKU: "55", Found: true, Sige: true, Quantidade: 99, CachedAt: time.Now().UnixMilli(),
	})

	snap := r.Estoque(context.Background(), "55", true)
	if snap.Quantidade != 4 {
		t.Errorf("refresh forçado deveria reconsultar o ERP, veio quantidade %v", snap.Quantidade)
	}
}

func TestEstoqueFalhaDeInfraNaoEntraNoCache(t *testing.T) {
	erp := &erpFalso{}
	r, kv := novoResolverDeTeste(t, erp)

	// substitui a primeira estratégia de rede por uma que falha feio
	r.estrategias = []estrategia{{
		nome: "instavel",
		busca: func(context.Context, string) ([]candidato, error) {
			return nil, errors.New("connection refused")
		},
	}}

	snap := r.Estoque(context.Background(), "AB-1", false)
	if snap.Sige {
		t.Error("falha de infraestrutura deve marcar Sige = false")
	}
	if _, err := kv.Get(prefixoEstoque + "AB-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("snapshot de falha de infraestrutura não deve ser cacheado")
	}
}

func TestPreco(t *testing.T) {
	erp := &erpFalso{
		precos: map[string][]map[string]any{
			"AB12": {
				{"preco": 12.0, "idListaPreco": "2"},
				{"preco": 10.5, "idListaPreco": "1"},
			},
		},
	}
	r, _ := novoResolverDeTeste(t, erp)

	snap := r.Preco(context.Background(), "AB12")
	if !snap.Found {
		t.Fatal("esperava Found = true")
	}
	if snap.Preco != 10.5 || snap.V1 != 10.5 || snap.V2 != 12 {
		t.Errorf("preços incorretos: %+v", snap)
	}

	// dentro do TTL a segunda consulta sai do cache
	chamadas := erp.chamadas
	r.Preco(context.Background(), "AB12")
	if erp.chamadas != chamadas {
		t.Error("segunda consulta de preço deveria sair do cache")
	}
}

func TestPrecoNaoEncontrado(t *testing.T) {
	erp := &erpFalso{}
	r, _ := novoResolverDeTeste(t, erp)

	snap := r.Preco(context.Background(), "NAOEXISTE")
	if snap.Found {
		t.Error("esperava Found = false")
	}
	if !snap.Sige {
		t.Error("cascata completa sem falha de infra deve marcar Sige = true")
	}
}

func TestEstoqueEmLote(t *testing.T) {
	erp := &erpFalso{
		saldos: map[string][]map[string]any{
			"1": {{"saldo": 1.0}},
			"2": {{"saldo": 2.0}},
		},
	}
	r, _ := novoResolverDeTeste(t, erp)

	resultados := r.EstoqueEmLote(context.Background(), []string{"1", "2", "SEM"}, false)
	if len(resultados) != 3 {
		t.Fatalf("esperava 3 resultados, veio %d", len(resultados))
	}
	if !resultados["1"].Found || resultados["1"].Quantidade != 1 {
		t.Errorf("resultado de 1 incorreto: %+v", resultados["1"])
	}
	if !resultados["2"].Found || resultados["2"].Quantidade != 2 {
		t.Errorf("resultado de 2 incorreto: %+v", resultados["2"])
	}
	// o SKU sem correspondência não contamina os demais
	if resultados["SEM"].Found {
		t.Error("SEM não deveria ser encontrado")
	}
}
