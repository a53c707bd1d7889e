package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casadaspecas/app-catalogo-api/internal/importer"
)

// tamanho máximo aceito para upload de planilha
const maxPlanilhaBytes = 10 << 20

type ImportacaoHandler struct {
	importer *importer.Importer
}

func NewImportacaoHandler(imp *importer.Importer) *ImportacaoHandler {
	return &ImportacaoHandler{importer: imp}
}

// reconciliarRequest é o corpo do POST de reconciliação direta
type reconciliarRequest struct {
	Skus []string `json:"skus" binding:"required,min=1"`
}

// Reconciliar godoc
// @Summary Reconcilia uma lista de SKUs
// @Description Casa os SKUs informados contra o catálogo em três níveis de tolerância de normalização
// @Tags importacao
// @Accept json
// @Produce json
// @Param body body reconciliarRequest true "SKUs importados"
// @Success 200 {object} reconcile.Outcome
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/admin/importacao/reconciliar [post]
func (h *ImportacaoHandler) Reconciliar(c *gin.Context) {
	var req reconciliarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Corpo inválido: %v", err)})
		return
	}

	outcome, err := h.importer.ReconciliarSKUs(c.Request.Context(), req.Skus)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Erro ao reconciliar: %v", err)})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Planilha godoc
// @Summary Reconcilia uma planilha de fornecedor
// @Description Recebe um XLSX, extrai a coluna de SKUs e reconcilia contra o catálogo
// @Tags importacao
// @Accept multipart/form-data
// @Produce json
// @Param arquivo formData file true "Planilha XLSX"
// @Success 200 {object} importer.Resultado
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/admin/importacao/planilha [post]
func (h *ImportacaoHandler) Planilha(c *gin.Context) {
	arquivo, err := c.FormFile("arquivo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Arquivo de planilha é obrigatório"})
		return
	}
	if arquivo.Size > maxPlanilhaBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Planilha maior que o limite de 10MB"})
		return
	}

	f, err := arquivo.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Falha ao abrir o arquivo: %v", err)})
		return
	}
	defer f.Close()

	resultado, err := h.importer.ReconciliarPlanilha(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Falha ao processar a planilha: %v", err)})
		return
	}
	c.JSON(http.StatusOK, resultado)
}
