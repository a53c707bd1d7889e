package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/casadaspecas/app-catalogo-api/internal/api/handlers"
	"github.com/casadaspecas/app-catalogo-api/internal/config"
	"github.com/casadaspecas/app-catalogo-api/internal/importer"
	"github.com/casadaspecas/app-catalogo-api/internal/infra/postgrest"
	"github.com/casadaspecas/app-catalogo-api/internal/infra/resilience"
	"github.com/casadaspecas/app-catalogo-api/internal/constants"
	middlewares "github.com/casadaspecas/app-catalogo-api/internal/middleware"
	"github.com/casadaspecas/app-catalogo-api/internal/search"
	"github.com/casadaspecas/app-catalogo-api/internal/sige"
	"github.com/casadaspecas/app-catalogo-api/internal/storage"
	"github.com/casadaspecas/app-catalogo-api/internal/utils"
)

// SetupRouter monta o grafo de dependências e registra as rotas
func SetupRouter(cfg *config.Config, kv *storage.KV, logger *zap.Logger) *gin.Engine {
	r := gin.Default()

	registrarValidacoes()

	r.Use(corsMiddleware())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestTiming())

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resCfg := resilience.Config{
		MaxRetries:     cfg.HTTPMaxRetries,
		InitialBackoff: cfg.HTTPBackoff,
	}

	catalogo := postgrest.NewClient(httpClient, cfg.CatalogoAPIURL, cfg.CatalogoAPIKey,
		resilience.NewCircuitBreaker("catalogo"), resCfg, logger)

	sessao := sige.NewSessionManager(httpClient, cfg.SigeAPIURL, cfg.SigeEmail, cfg.SigeSenha, kv, logger)
	sigeClient := sige.NewClient(httpClient, cfg.SigeAPIURL, sessao,
		resilience.NewCircuitBreaker("sige"), resCfg, logger)
	mapeamentos := sige.NewMappingStore(kv, logger)
	resolver := sige.NewResolver(sigeClient, mapeamentos, kv, logger)
	sincronizador := sige.NewSincronizador(sigeClient, catalogo, mapeamentos, resolver, logger)

	engine := search.NewEngine(catalogo, search.NewSearchCache(cfg.BuscaCacheTTL, cfg.BuscaCacheMaxSize), logger)

	buscaHandler := handlers.NewBuscaHandler(engine)
	importacaoHandler := handlers.NewImportacaoHandler(importer.NewImporter(catalogo, logger))
	sigeHandler := handlers.NewSigeHandler(resolver, mapeamentos, sincronizador)
	healthHandler := handlers.NewHealthHandler(catalogo, kv)

	api := r.Group("/api/v1")
	{
		api.GET("/busca/autocomplete", buscaHandler.Autocomplete)
		api.GET("/busca", buscaHandler.Busca)
	}

	admin := api.Group("/admin")
	admin.Use(middlewares.JWTAuthMiddleware(cfg.JWTSecret), middlewares.RequireAdmin())
	{
		admin.POST("/importacao/reconciliar", importacaoHandler.Reconciliar)
		admin.POST("/importacao/planilha", importacaoHandler.Planilha)

		admin.GET("/sige/estoque/:sku", sigeHandler.Estoque)
		admin.POST("/sige/estoque/lote", sigeHandler.EstoqueEmLote)
		admin.GET("/sige/preco/:sku", sigeHandler.Preco)
		admin.GET("/sige/mapeamentos", sigeHandler.ListarMapeamentos)
		admin.POST("/sige/mapeamentos", sigeHandler.CriarMapeamento)
		admin.DELETE("/sige/mapeamentos/:sku", sigeHandler.RemoverMapeamento)
		admin.POST("/sige/sincronizar", sigeHandler.Sincronizar)
	}

	r.GET("/health", healthHandler.Health)
	r.GET("/liveness", healthHandler.Liveness)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// registrarValidacoes adiciona a regra "categoria" ao validador do gin:
// o valor, normalizado, precisa ser uma das categorias do catálogo
func registrarValidacoes() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("categoria", func(fl validator.FieldLevel) bool {
		informada := utils.NormalizarCategoria(fl.Field().String())
		for _, categoria := range constants.CategoriasValidas {
			if utils.NormalizarCategoria(categoria) == informada {
				return true
			}
		}
		return false
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
