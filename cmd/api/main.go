package main

import (
	"log"

	_ "github.com/casadaspecas/app-catalogo-api/docs"
	"github.com/casadaspecas/app-catalogo-api/internal/api/routes"
	"github.com/casadaspecas/app-catalogo-api/internal/config"
	"github.com/casadaspecas/app-catalogo-api/internal/observability"
	"github.com/casadaspecas/app-catalogo-api/internal/storage"
)

// @title           Catálogo Casa das Peças API
// @version         1.0
// @description     API de busca de autopeças com reconciliação de importações e integração com o ERP SIGE

// @contact.name   Casa das Peças
// @contact.email  ti@casadaspecas.com.br

// @host      localhost:8080

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg := config.LoadConfig()

	logger := observability.NewLogger()
	defer logger.Sync()

	observability.InitTracer(cfg)
	defer observability.ShutdownTracer()

	kv, err := storage.Open(cfg.KVPath)
	if err != nil {
		log.Fatalf("Erro ao abrir o armazenamento local: %v", err)
	}
	defer kv.Close()

	r := routes.SetupRouter(cfg, kv, logger)

	log.Printf("Servidor iniciado na porta %s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Erro ao iniciar servidor: %v", err)
	}
}
