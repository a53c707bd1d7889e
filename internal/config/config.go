// Package config gerencia configurações da aplicação via variáveis de ambiente.
//
// # Variáveis de Ambiente
//
// ## Catálogo (PostgREST/Supabase)
//   - CATALOGO_API_URL: URL base do projeto (ex: https://xyz.supabase.co)
//   - CATALOGO_API_KEY: Chave service-role usada nas consultas
//
// ## SIGE
//   - SIGE_API_URL: URL base da API REST do ERP
//   - SIGE_EMAIL: E-mail de autenticação
//   - SIGE_SENHA: Senha de autenticação
//
// ## Servidor
//   - SERVER_PORT: Porta HTTP (default: 8080)
//   - JWT_SECRET: Segredo HMAC dos tokens de admin
//   - KV_PATH: Caminho do banco local de chave-valor (default: dados/catalogo.db)
//
// ## Busca
//   - BUSCA_CACHE_TTL_MINUTES: TTL do cache de respostas em minutos (default: 2)
//   - BUSCA_CACHE_MAX_SIZE: Tamanho máximo do cache de respostas (default: 500)
//
// ## Resiliência
//   - HTTP_MAX_RETRIES: Tentativas extras por chamada externa (default: 2)
//   - HTTP_BACKOFF_MS: Backoff inicial em milissegundos (default: 250)
//
// ## Tracing
//   - TRACING_ENABLED: Habilita o exportador OTLP (default: false)
//   - TRACING_ENDPOINT: Endpoint gRPC do coletor (default: localhost:4317)
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CatalogoAPIURL string
	CatalogoAPIKey string

	SigeAPIURL string
	SigeEmail  string
	SigeSenha  string

	ServerPort string
	JWTSecret  string
	KVPath     string

	BuscaCacheTTL     time.Duration
	BuscaCacheMaxSize int

	HTTPMaxRetries int
	HTTPBackoff    time.Duration

	TracingEnabled  bool
	TracingEndpoint string
}

// LoadConfig carrega a configuração do ambiente (e de um .env, se existir)
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		CatalogoAPIURL: getEnv("CATALOGO_API_URL", ""),
		CatalogoAPIKey: getEnv("CATALOGO_API_KEY", ""),

		SigeAPIURL: getEnv("SIGE_API_URL", ""),
		SigeEmail:  getEnv("SIGE_EMAIL", ""),
		SigeSenha:  getEnv("SIGE_SENHA", ""),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		KVPath:     getEnv("KV_PATH", "dados/catalogo.db"),

		BuscaCacheTTL:     time.Duration(getEnvInt("BUSCA_CACHE_TTL_MINUTES", 2)) * time.Minute,
		BuscaCacheMaxSize: getEnvInt("BUSCA_CACHE_MAX_SIZE", 500),

		HTTPMaxRetries: getEnvInt("HTTP_MAX_RETRIES", 2),
		HTTPBackoff:    time.Duration(getEnvInt("HTTP_BACKOFF_MS", 250)) * time.Millisecond,

		TracingEnabled:  getEnv("TRACING_ENABLED", "false") == "true",
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4317"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
