// Comando de linha para a sincronização em massa de mapeamentos,
// pensado para rodar em um cron fora do horário de pico.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/casadaspecas/app-catalogo-api/internal/config"
	"github.com/casadaspecas/app-catalogo-api/internal/infra/postgrest"
	"github.com/casadaspecas/app-catalogo-api/internal/infra/resilience"
	"github.com/casadaspecas/app-catalogo-api/internal/observability"
	"github.com/casadaspecas/app-catalogo-api/internal/sige"
	"github.com/casadaspecas/app-catalogo-api/internal/storage"
)

func main() {
	estoques := flag.Bool("estoques", false, "Aquecer o cache de estoque dos SKUs mapeados")
	limpar := flag.Bool("limpar", false, "Descartar os mapeamentos existentes antes de casar de novo")
	timeout := flag.Duration("timeout", 30*time.Minute, "Prazo máximo da sincronização")
	flag.Parse()

	cfg := config.LoadConfig()
	logger := observability.NewLogger()
	defer logger.Sync()

	kv, err := storage.Open(cfg.KVPath)
	if err != nil {
		log.Fatalf("Erro ao abrir o armazenamento local: %v", err)
	}
	defer kv.Close()

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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	relatorio, err := sincronizador.Sincronizar(ctx, sige.SyncOptions{
		BuscarEstoques:   *estoques,
		LimparExistentes: *limpar,
	})
	if err != nil {
		log.Fatalf("Erro na sincronização: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(relatorio); err != nil {
		log.Fatalf("Erro ao serializar o relatório: %v", err)
	}
}
