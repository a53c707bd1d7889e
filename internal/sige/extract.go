package sige

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// O SIGE expõe a mesma grandeza com nomes diferentes conforme o
// endpoint e a configuração de listas de preço. A extração tenta uma
// lista ordenada de nomes conhecidos e, se nenhum vier preenchido, cai
// em uma heurística: o primeiro campo numérico cujo nome não pareça
// id, código ou paginação.

var camposQuantidade = []string{
	"saldo", "saldoAtual", "saldoFisico", "saldoEstoque",
	"quantidade", "quantidadeEstoque", "qtde", "qtd", "qtdEstoque",
	"estoque", "estoqueAtual", "quantity",
}

var camposReservado = []string{
	"reservado", "saldoReservado", "qtdReservada", "quantidadeReservada", "reserved",
}

var camposDisponivel = []string{
	"disponivel", "saldoDisponivel", "qtdDisponivel", "quantidadeDisponivel", "available",
}

var camposPreco = []string{
	"preco", "precoVenda", "precoTabela", "valor", "valorVenda", "valorUnitario", "price",
}

var camposID = []string{"id", "idProduto", "codigo", "productId"}

var camposCodProduto = []string{"codProduto", "codigoProduto", "cod_produto", "sku"}

var camposDescricao = []string{"descProduto", "descricao", "nomeProduto", "nome", "description"}

var camposLocal = []string{"local", "deposito", "nomeDeposito", "armazem", "filial"}

// nomes que a heurística nunca aceita como quantidade
var reCampoNaoNumerico = regexp.MustCompile(`(?i)^id|id$|^cod|codigo|page|pagina|limit|offset|total|ncm|cest|cnpj`)

// ExtrairQuantidade lê a quantidade de um item de saldo
func ExtrairQuantidade(item map[string]any) (float64, bool) {
	return extrairNumero(item, camposQuantidade)
}

// ExtrairReservado lê a quantidade reservada, quando presente. Só os
// nomes conhecidos valem: a heurística de primeiro campo numérico
// devolveria o próprio saldo como reservado.
func ExtrairReservado(item map[string]any) (float64, bool) {
	return extrairNumeroNomeado(item, camposReservado)
}

// ExtrairDisponivel lê a quantidade disponível, quando presente.
// Assim como o reservado, aceita apenas nomes conhecidos; sem eles o
// disponível é derivado de quantidade - reservado.
func ExtrairDisponivel(item map[string]any) (float64, bool) {
	return extrairNumeroNomeado(item, camposDisponivel)
}

// ExtrairPreco lê o valor de um item de lista de preço
func ExtrairPreco(item map[string]any) (float64, bool) {
	return extrairNumero(item, camposPreco)
}

// ExtrairID devolve o identificador interno do produto no ERP
func ExtrairID(item map[string]any) string {
	return extrairTexto(item, camposID)
}

// ExtrairCodProduto devolve o código de produto visível do ERP
func ExtrairCodProduto(item map[string]any) string {
	return extrairTexto(item, camposCodProduto)
}

// ExtrairDescricao devolve a descrição do produto no ERP
func ExtrairDescricao(item map[string]any) string {
	return extrairTexto(item, camposDescricao)
}

// ExtrairLocal devolve o nome do depósito de um item de saldo
func ExtrairLocal(item map[string]any) string {
	return extrairTexto(item, camposLocal)
}

// extrairNumero tenta os nomes conhecidos na ordem dada e depois a
// heurística de primeiro campo numérico plausível
func extrairNumero(item map[string]any, nomes []string) (float64, bool) {
	if n, ok := extrairNumeroNomeado(item, nomes); ok {
		return n, true
	}

	// fallback heurístico: percorre em ordem estável para ser determinístico
	chaves := make([]string, 0, len(item))
	for k := range item {
		chaves = append(chaves, k)
	}
	sort.Strings(chaves)
	for _, k := range chaves {
		if reCampoNaoNumerico.MatchString(k) {
			continue
		}
		if n, ok := comoNumero(item[k]); ok {
			return n, true
		}
	}
	return 0, false
}

// extrairNumeroNomeado tenta apenas os nomes conhecidos, sem heurística
func extrairNumeroNomeado(item map[string]any, nomes []string) (float64, bool) {
	indice := make(map[string]any, len(item))
	for k, v := range item {
		indice[strings.ToLower(k)] = v
	}
	for _, nome := range nomes {
		if v, ok := indice[strings.ToLower(nome)]; ok {
			if n, ok := comoNumero(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func extrairTexto(item map[string]any, nomes []string) string {
	indice := make(map[string]any, len(item))
	for k, v := range item {
		indice[strings.ToLower(k)] = v
	}
	for _, nome := range nomes {
		v, ok := indice[strings.ToLower(nome)]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

// comoNumero aceita os formatos que o SIGE mistura: número JSON,
// string com ponto e string com vírgula decimal
func comoNumero(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		if t == "" {
			return 0, false
		}
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// PrecosPorLista distribui os itens de lista de preço nas colunas v1,
// v2 e v3 pela ordem de ordenação do identificador da lista. Sem um
// mapeamento explícito configurado isto é uma heurística sem garantia
// de corresponder às faixas reais, por isso o aviso no log.
func PrecosPorLista(itens []map[string]any, logger *zap.Logger) (v1, v2, v3 float64) {
	type entrada struct {
		lista string
		valor float64
	}
	var entradas []entrada
	for _, item := range itens {
		valor, ok := ExtrairPreco(item)
		if !ok {
			continue
		}
		lista := extrairTexto(item, []string{"idListaPreco", "codListaPreco", "listaPreco", "nomeLista"})
		entradas = append(entradas, entrada{lista: lista, valor: valor})
	}
	if len(entradas) == 0 {
		return 0, 0, 0
	}

	sort.SliceStable(entradas, func(i, j int) bool { return entradas[i].lista < entradas[j].lista })

	if len(entradas) > 1 && logger != nil {
		logger.Warn("sige: colunas v1/v2/v3 atribuídas por ordem das listas de preço, sem mapeamento explícito",
			zap.Int("listas", len(entradas)),
		)
	}

	v1 = entradas[0].valor
	if len(entradas) > 1 {
		v2 = entradas[1].valor
	}
	if len(entradas) > 2 {
		v3 = entradas[2].valor
	}
	return v1, v2, v3
}
