package search

import "errors"

var (
	ErrConsultaCurta  = errors.New("consulta muito curta")
	ErrCatalogoFalhou = errors.New("falha na comunicação com o catálogo")
	ErrBuscaCancelada = errors.New("busca cancelada")
)
