package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/casadaspecas/app-catalogo-api/internal/infra/postgrest"
	"github.com/casadaspecas/app-catalogo-api/internal/storage"
)

// HealthHandler gerencia os endpoints de health check
type HealthHandler struct {
	catalogo *postgrest.Client
	kv       *storage.KV
}

// NewHealthHandler cria um novo handler de health check
func NewHealthHandler(catalogo *postgrest.Client, kv *storage.KV) *HealthHandler {
	return &HealthHandler{catalogo: catalogo, kv: kv}
}

// HealthResponse representa a resposta do health check
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// Liveness godoc
// @Summary Liveness probe
// @Description Confirma que a aplicação está viva, sem checar dependências externas
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /liveness [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().Unix(),
	})
}

// Health godoc
// @Summary Health check completo
// @Description Verifica o catálogo e o armazenamento local; o SIGE não entra porque a API degrada sem ele
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Checks:    make(map[string]string),
		Timestamp: time.Now().Unix(),
	}

	if h.checkCatalogo(ctx) {
		response.Checks["catalogo"] = "ok"
	} else {
		response.Checks["catalogo"] = "failed"
		response.Status = "unhealthy"
		response.Error = "Catálogo não disponível"
	}

	if _, err := h.kv.Get("health:probe"); err == nil || errors.Is(err, storage.ErrNotFound) {
		response.Checks["kv"] = "ok"
	} else {
		response.Checks["kv"] = "failed"
		response.Status = "unhealthy"
		response.Error = "Armazenamento local não disponível"
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

// checkCatalogo faz uma consulta mínima ao PostgREST
func (h *HealthHandler) checkCatalogo(ctx context.Context) bool {
	_, _, err := h.catalogo.BuscarProdutos(ctx, "or(titulo.ilike.*)", 0, 1)
	return err == nil
}
