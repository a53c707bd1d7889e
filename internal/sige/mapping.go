package sige

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/casadaspecas/app-catalogo-api/internal/models"
	"github.com/casadaspecas/app-catalogo-api/internal/storage"

	"go.uber.org/zap"
)

// prefixos das chaves no KV; o sufixo é sempre o SKU do catálogo
const (
	prefixoMapeamento = "sige:mapeamento:"
	prefixoEstoque    = "sige:estoque:"
	prefixoPreco      = "sige:preco:"
)

// MappingStore guarda os vínculos SKU → produto SIGE no KV local.
// Escrever ou remover um vínculo invalida os snapshots de estoque e
// preço do SKU, já que eles foram resolvidos com a identidade antiga.
type MappingStore struct {
	kv     *storage.KV
	logger *zap.Logger
	agora  func() time.Time
}

func NewMappingStore(kv *storage.KV, logger *zap.Logger) *MappingStore {
	return &MappingStore{kv: kv, logger: logger, agora: time.Now}
}

// Obter devolve o mapeamento do SKU; storage.ErrNotFound quando não há
func (m *MappingStore) Obter(sku string) (*models.SkuMapping, error) {
	var mapeamento models.SkuMapping
	if err := m.kv.GetJSON(prefixoMapeamento+sku, &mapeamento); err != nil {
		return nil, err
	}
	return &mapeamento, nil
}

// Salvar grava o mapeamento e invalida os caches do SKU
func (m *MappingStore) Salvar(mapeamento *models.SkuMapping) error {
	if mapeamento.SKU == "" {
		return errors.New("mapeamento sem SKU")
	}
	if mapeamento.MatchedAt.IsZero() {
		mapeamento.MatchedAt = m.agora()
	}
	if err := m.kv.SetJSON(prefixoMapeamento+mapeamento.SKU, mapeamento); err != nil {
		return fmt.Errorf("falha ao salvar mapeamento de %s: %w", mapeamento.SKU, err)
	}
	m.invalidarCaches(mapeamento.SKU)

	m.logger.Debug("sige: mapeamento salvo",
		zap.String("sku", mapeamento.SKU),
		zap.Int64("sigeId", mapeamento.SigeID),
		zap.String("matchType", mapeamento.MatchType),
	)
	return nil
}

// Remover apaga o mapeamento e invalida os caches do SKU
func (m *MappingStore) Remover(sku string) error {
	if err := m.kv.Delete(prefixoMapeamento + sku); err != nil {
		return fmt.Errorf("falha ao remover mapeamento de %s: %w", sku, err)
	}
	m.invalidarCaches(sku)
	return nil
}

// Listar devolve todos os mapeamentos salvos, em ordem de SKU
func (m *MappingStore) Listar() ([]models.SkuMapping, error) {
	entradas, err := m.kv.PrefixScan(prefixoMapeamento)
	if err != nil {
		return nil, err
	}

	mapeamentos := make([]models.SkuMapping, 0, len(entradas))
	for _, e := range entradas {
		var mapeamento models.SkuMapping
		if err := json.Unmarshal([]byte(e.Value), &mapeamento); err != nil {
			m.logger.Warn("sige: mapeamento ilegível no KV", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		mapeamentos = append(mapeamentos, mapeamento)
	}
	return mapeamentos, nil
}

// LimparTudo remove todos os mapeamentos; usado pela sincronização
// quando o chamador pede um recomeço limpo
func (m *MappingStore) LimparTudo() (int, error) {
	return m.kv.DeletePrefix(prefixoMapeamento)
}

func (m *MappingStore) invalidarCaches(sku string) {
	if err := m.kv.Delete(prefixoEstoque + sku); err != nil {
		m.logger.Warn("sige: falha ao invalidar cache de estoque", zap.String("sku", sku), zap.Error(err))
	}
	if err := m.kv.Delete(prefixoPreco + sku); err != nil {
		m.logger.Warn("sige: falha ao invalidar cache de preço", zap.String("sku", sku), zap.Error(err))
	}
}
