package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/casadaspecas/app-catalogo-api/internal/search"
)

type BuscaHandler struct {
	engine *search.Engine
}

func NewBuscaHandler(engine *search.Engine) *BuscaHandler {
	return &BuscaHandler{engine: engine}
}

// buscaParams são os parâmetros de query da busca de catálogo.
// A regra "categoria" é registrada em routes.CategoriaValida.
type buscaParams struct {
	Q         string `form:"q" binding:"required"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
	Categoria string `form:"categoria" binding:"omitempty,categoria"`
}

// Autocomplete godoc
// @Summary Autocomplete de produtos
// @Description Sugere produtos conforme o usuário digita, com tolerância a acentos, erros de digitação e variações fonéticas
// @Tags busca
// @Accept json
// @Produce json
// @Param q query string true "Termo parcial digitado"
// @Param limit query int false "Máximo de sugestões" default(10)
// @Success 200 {object} models.AutocompleteResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/busca/autocomplete [get]
func (h *BuscaHandler) Autocomplete(c *gin.Context) {
	termo := c.Query("q")
	if termo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Termo de busca é obrigatório"})
		return
	}

	limite, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limite < 1 {
		limite = 10
	}

	resultado, err := h.engine.Autocomplete(c.Request.Context(), termo, limite)
	if err != nil {
		responderErroDeBusca(c, err)
		return
	}
	c.JSON(http.StatusOK, resultado)
}

// Busca godoc
// @Summary Busca paginada do catálogo
// @Description Busca produtos por título ou SKU, ranqueados por relevância, com filtro opcional de categoria
// @Tags busca
// @Accept json
// @Produce json
// @Param q query string true "Termo de busca"
// @Param page query int false "Página" default(1)
// @Param per_page query int false "Resultados por página" default(20)
// @Param categoria query string false "Categoria para restringir a busca"
// @Success 200 {object} models.BuscaResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/busca [get]
func (h *BuscaHandler) Busca(c *gin.Context) {
	var params buscaParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Parâmetros inválidos: %v", err)})
		return
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}

	resultado, err := h.engine.Busca(c.Request.Context(), params.Q, params.Page, params.PerPage, params.Categoria)
	if err != nil {
		responderErroDeBusca(c, err)
		return
	}
	c.JSON(http.StatusOK, resultado)
}

func responderErroDeBusca(c *gin.Context, err error) {
	switch {
	case errors.Is(err, search.ErrConsultaCurta):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Termo de busca muito curto"})
	case errors.Is(err, search.ErrCatalogoFalhou):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Catálogo indisponível no momento"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Erro ao realizar busca: %v", err)})
	}
}
