package observability

import (
	"os"

	"go.uber.org/zap"
)

// NewLogger cria o logger estruturado da aplicação. Em desenvolvimento
// (APP_ENV=dev) a saída é legível no console; caso contrário, JSON.
func NewLogger() *zap.Logger {
	var cfg zap.Config
	if os.Getenv("APP_ENV") == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		// sem logger não há o que fazer além de um fallback mínimo
		return zap.NewNop()
	}
	return logger
}
