package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casadaspecas/app-catalogo-api/internal/models"
	"github.com/casadaspecas/app-catalogo-api/internal/sige"
	"github.com/casadaspecas/app-catalogo-api/internal/storage"
)

// máximo de SKUs aceitos em uma consulta de estoque em lote
const maxLote = 200

type SigeHandler struct {
	resolver      *sige.Resolver
	mapeamentos   *sige.MappingStore
	sincronizador *sige.Sincronizador
}

func NewSigeHandler(resolver *sige.Resolver, mapeamentos *sige.MappingStore, sincronizador *sige.Sincronizador) *SigeHandler {
	return &SigeHandler{
		resolver:      resolver,
		mapeamentos:   mapeamentos,
		sincronizador: sincronizador,
	}
}

// Estoque godoc
// @Summary Saldo de estoque de um SKU
// @Description Resolve o saldo no SIGE via cascata de identidade, com cache por TTL
// @Tags sige
// @Produce json
// @Param sku path string true "SKU do catálogo"
// @Param refresh query bool false "Ignora o cache e reconsulta o ERP"
// @Success 200 {object} models.BalanceSnapshot
// @Security BearerAuth
// @Router /api/v1/admin/sige/estoque/{sku} [get]
func (h *SigeHandler) Estoque(c *gin.Context) {
	sku := c.Param("sku")
	forcar := c.Query("refresh") == "true"

	c.JSON(http.StatusOK, h.resolver.Estoque(c.Request.Context(), sku, forcar))
}

// loteRequest é o corpo da consulta de estoque em lote
type loteRequest struct {
	Skus    []string `json:"skus" binding:"required,min=1"`
	Refresh bool     `json:"refresh"`
}

// EstoqueEmLote godoc
// @Summary Saldo de estoque de vários SKUs
// @Description Resolve os saldos em paralelo com concorrência limitada; a falha de um SKU não afeta os demais
// @Tags sige
// @Accept json
// @Produce json
// @Param body body loteRequest true "SKUs a consultar"
// @Success 200 {object} map[string]models.BalanceSnapshot
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/admin/sige/estoque/lote [post]
func (h *SigeHandler) EstoqueEmLote(c *gin.Context) {
	var req loteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Corpo inválido: %v", err)})
		return
	}
	if len(req.Skus) > maxLote {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Máximo de %d SKUs por lote", maxLote)})
		return
	}

	c.JSON(http.StatusOK, h.resolver.EstoqueEmLote(c.Request.Context(), req.Skus, req.Refresh))
}

// Preco godoc
// @Summary Preço de tabela de um SKU
// @Description Resolve o preço nas listas de preço do SIGE, com cache por TTL
// @Tags sige
// @Produce json
// @Param sku path string true "SKU do catálogo"
// @Success 200 {object} models.PriceSnapshot
// @Security BearerAuth
// @Router /api/v1/admin/sige/preco/{sku} [get]
func (h *SigeHandler) Preco(c *gin.Context) {
	c.JSON(http.StatusOK, h.resolver.Preco(c.Request.Context(), c.Param("sku")))
}

// ListarMapeamentos godoc
// @Summary Lista os vínculos SKU → produto SIGE
// @Tags sige
// @Produce json
// @Success 200 {array} models.SkuMapping
// @Security BearerAuth
// @Router /api/v1/admin/sige/mapeamentos [get]
func (h *SigeHandler) ListarMapeamentos(c *gin.Context) {
	mapeamentos, err := h.mapeamentos.Listar()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Erro ao listar mapeamentos: %v", err)})
		return
	}
	c.JSON(http.StatusOK, mapeamentos)
}

// mapeamentoRequest é o corpo do cadastro manual de vínculo
type mapeamentoRequest struct {
	SKU        string `json:"sku" binding:"required"`
	SigeID     int64  `json:"sigeId" binding:"required"`
	CodProduto string `json:"codProduto"`
	Descricao  string `json:"descricao"`
}

// CriarMapeamento godoc
// @Summary Cadastra um vínculo manual
// @Description Vincula um SKU a um produto SIGE à mão; invalida os caches de estoque e preço do SKU
// @Tags sige
// @Accept json
// @Produce json
// @Param body body mapeamentoRequest true "Vínculo"
// @Success 201 {object} models.SkuMapping
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/admin/sige/mapeamentos [post]
func (h *SigeHandler) CriarMapeamento(c *gin.Context) {
	var req mapeamentoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Corpo inválido: %v", err)})
		return
	}

	mapeamento := &models.SkuMapping{
		SKU:        req.SKU,
		SigeID:     req.SigeID,
		CodProduto: req.CodProduto,
		Descricao:  req.Descricao,
		MatchType:  models.MatchManual,
	}
	if err := h.mapeamentos.Salvar(mapeamento); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Erro ao salvar mapeamento: %v", err)})
		return
	}
	c.JSON(http.StatusCreated, mapeamento)
}

// RemoverMapeamento godoc
// @Summary Remove o vínculo de um SKU
// @Tags sige
// @Produce json
// @Param sku path string true "SKU do catálogo"
// @Success 204
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/admin/sige/mapeamentos/{sku} [delete]
func (h *SigeHandler) RemoverMapeamento(c *gin.Context) {
	sku := c.Param("sku")
	if _, err := h.mapeamentos.Obter(sku); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Mapeamento não encontrado"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Erro ao consultar mapeamento: %v", err)})
		return
	}

	if err := h.mapeamentos.Remover(sku); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Erro ao remover mapeamento: %v", err)})
		return
	}
	c.Status(http.StatusNoContent)
}

// Sincronizar godoc
// @Summary Sincroniza os mapeamentos em massa
// @Description Casa todos os SKUs do catálogo contra o cadastro completo do SIGE
// @Tags sige
// @Produce json
// @Param estoques query bool false "Aquece o cache de estoque dos SKUs mapeados"
// @Param limpar query bool false "Descarta os mapeamentos existentes antes"
// @Success 200 {object} models.SyncReport
// @Failure 502 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/admin/sige/sincronizar [post]
func (h *SigeHandler) Sincronizar(c *gin.Context) {
	relatorio, err := h.sincronizador.Sincronizar(c.Request.Context(), sige.SyncOptions{
		BuscarEstoques:   c.Query("estoques") == "true",
		LimparExistentes: c.Query("limpar") == "true",
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Erro na sincronização: %v", err)})
		return
	}
	c.JSON(http.StatusOK, relatorio)
}
