package constants

// CategoriasValidas contém todas as categorias disponíveis no catálogo
var CategoriasValidas = []string{
	"Motor",
	"Suspensão",
	"Freios",
	"Transmissão",
	"Elétrica",
	"Iluminação",
	"Arrefecimento",
	"Escapamento",
	"Filtros e Lubrificação",
	"Carroceria",
	"Direção",
	"Embreagem",
	"Injeção",
	"Acessórios",
}
