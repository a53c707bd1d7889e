// Comando de linha para reconciliar uma planilha de fornecedor sem
// passar pela API.
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
	"github.com/casadaspecas/app-catalogo-api/internal/importer"
	"github.com/casadaspecas/app-catalogo-api/internal/infra/postgrest"
	"github.com/casadaspecas/app-catalogo-api/internal/infra/resilience"
	"github.com/casadaspecas/app-catalogo-api/internal/observability"
)

func main() {
	arquivo := flag.String("arquivo", "", "Caminho da planilha XLSX do fornecedor")
	flag.Parse()

	if *arquivo == "" {
		log.Fatal("Informe a planilha com -arquivo")
	}

	cfg := config.LoadConfig()
	logger := observability.NewLogger()
	defer logger.Sync()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	catalogo := postgrest.NewClient(httpClient, cfg.CatalogoAPIURL, cfg.CatalogoAPIKey,
		resilience.NewCircuitBreaker("catalogo"),
		resilience.Config{MaxRetries: cfg.HTTPMaxRetries, InitialBackoff: cfg.HTTPBackoff},
		logger)

	f, err := os.Open(*arquivo)
	if err != nil {
		log.Fatalf("Erro ao abrir a planilha: %v", err)
	}
	defer f.Close()

	imp := importer.NewImporter(catalogo, logger)
	resultado, err := imp.ReconciliarPlanilha(context.Background(), f)
	if err != nil {
		log.Fatalf("Erro ao reconciliar: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resultado); err != nil {
		log.Fatalf("Erro ao serializar o resultado: %v", err)
	}
}
