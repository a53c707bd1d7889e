// Package importer lê planilhas de fornecedores e reconcilia os SKUs
// importados contra o catálogo.
package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/casadaspecas/app-catalogo-api/internal/models"
	"github.com/casadaspecas/app-catalogo-api/internal/reconcile"
	"github.com/casadaspecas/app-catalogo-api/internal/utils"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("importer")

// nomes de coluna aceitos para a coluna de SKU, já normalizados
var colunasSKU = map[string]bool{
	"sku":        true,
	"codigo":     true,
	"cod":        true,
	"referencia": true,
	"ref":        true,
}

// LinhaInvalida descreve uma linha da planilha que não rendeu um SKU
type LinhaInvalida struct {
	Linha  int    `json:"linha"`
	Motivo string `json:"motivo"`
}

// Planilha é o resultado da leitura de um arquivo de fornecedor
type Planilha struct {
	SKUs      []string        `json:"skus"`
	Invalidas []LinhaInvalida `json:"invalidas,omitempty"`
}

// Resultado junta a reconciliação com os problemas de leitura
type Resultado struct {
	Reconciliacao *reconcile.Outcome `json:"reconciliacao"`
	Invalidas     []LinhaInvalida    `json:"invalidas,omitempty"`
}

// catalogoLister entrega o universo de SKUs do catálogo
type catalogoLister interface {
	ListarTodosProdutos(ctx context.Context) ([]models.Produto, error)
}

// Importer reconcilia listas de SKUs vindas de fornecedores
type Importer struct {
	catalogo catalogoLister
	logger   *zap.Logger
}

func NewImporter(catalogo catalogoLister, logger *zap.Logger) *Importer {
	return &Importer{catalogo: catalogo, logger: logger}
}

// LerPlanilha extrai a coluna de SKUs da primeira aba de um XLSX.
// A coluna é localizada pelo cabeçalho; sem cabeçalho reconhecível,
// a primeira coluna é usada.
func LerPlanilha(r io.Reader) (*Planilha, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir planilha: %w", err)
	}
	defer f.Close()

	abas := f.GetSheetList()
	if len(abas) == 0 {
		return nil, fmt.Errorf("planilha sem abas")
	}

	linhas, err := f.GetRows(abas[0])
	if err != nil {
		return nil, fmt.Errorf("falha ao ler a aba %q: %w", abas[0], err)
	}
	if len(linhas) == 0 {
		return nil, fmt.Errorf("planilha vazia")
	}

	coluna, temCabecalho := localizarColunaSKU(linhas[0])
	inicio := 0
	if temCabecalho {
		inicio = 1
	}

	planilha := &Planilha{}
	for i := inicio; i < len(linhas); i++ {
		linha := linhas[i]
		if len(linha) <= coluna {
			planilha.Invalidas = append(planilha.Invalidas, LinhaInvalida{
				Linha: i + 1, Motivo: "linha sem a coluna de SKU",
			})
			continue
		}
		sku := strings.TrimSpace(linha[coluna])
		if sku == "" {
			// linhas inteiramente vazias são comuns no fim do arquivo
			if linhaVazia(linha) {
				continue
			}
			planilha.Invalidas = append(planilha.Invalidas, LinhaInvalida{
				Linha: i + 1, Motivo: "célula de SKU vazia",
			})
			continue
		}
		planilha.SKUs = append(planilha.SKUs, sku)
	}
	return planilha, nil
}

// ReconciliarPlanilha lê o XLSX e reconcilia contra o catálogo
func (imp *Importer) ReconciliarPlanilha(ctx context.Context, r io.Reader) (*Resultado, error) {
	ctx, span := tracer.Start(ctx, "Importer.ReconciliarPlanilha")
	defer span.End()

	planilha, err := LerPlanilha(r)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("planilha.skus", len(planilha.SKUs)),
		attribute.Int("planilha.invalidas", len(planilha.Invalidas)),
	)

	outcome, err := imp.ReconciliarSKUs(ctx, planilha.SKUs)
	if err != nil {
		return nil, err
	}
	return &Resultado{Reconciliacao: outcome, Invalidas: planilha.Invalidas}, nil
}

// ReconciliarSKUs reconcilia uma lista já extraída de SKUs
func (imp *Importer) ReconciliarSKUs(ctx context.Context, skus []string) (*reconcile.Outcome, error) {
	produtos, err := imp.catalogo.ListarTodosProdutos(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar o catálogo: %w", err)
	}

	catalogoSKUs := make([]string, 0, len(produtos))
	for _, p := range produtos {
		catalogoSKUs = append(catalogoSKUs, p.SKU)
	}

	outcome := reconcile.NewReconciler(catalogoSKUs).Reconciliar(skus)
	imp.logger.Info("reconciliação concluída",
		zap.Int("importados", len(skus)),
		zap.Int("casados", len(outcome.Matched)),
		zap.Int("semPar", len(outcome.Unmatched)),
	)
	return outcome, nil
}

func localizarColunaSKU(cabecalho []string) (int, bool) {
	for i, celula := range cabecalho {
		nome := utils.NormalizarCategoria(strings.TrimSpace(celula))
		if colunasSKU[nome] {
			return i, true
		}
	}
	return 0, false
}

func linhaVazia(linha []string) bool {
	for _, c := range linha {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
