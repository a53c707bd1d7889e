package search

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// SearchCache guarda respostas de busca em memória. As entradas são
// imutáveis depois de gravadas; quem lê nunca as modifica.
type SearchCache struct {
	data    map[string]*cachedResult
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int
}

type cachedResult struct {
	response  any
	timestamp time.Time
}

// NewSearchCache cria um novo cache de busca
func NewSearchCache(ttl time.Duration, maxSize int) *SearchCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if maxSize <= 0 {
		maxSize = 500
	}
	return &SearchCache{
		data:    make(map[string]*cachedResult),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get busca um resultado no cache; nil quando ausente ou vencido
func (c *SearchCache) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if cached, ok := c.data[key]; ok {
		if time.Since(cached.timestamp) < c.ttl {
			return cached.response
		}
	}
	return nil
}

// Set armazena um resultado no cache
func (c *SearchCache) Set(key string, response any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// limpa entradas expiradas se o cache está cheio
	if len(c.data) >= c.maxSize {
		c.cleanup()
	}

	c.data[key] = &cachedResult{
		response:  response,
		timestamp: time.Now(),
	}
}

// GenerateKey gera uma chave única a partir dos parâmetros da busca
func (c *SearchCache) GenerateKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}

// cleanup remove entradas expiradas; se ainda estiver cheio, remove a
// mais antiga
func (c *SearchCache) cleanup() {
	now := time.Now()
	for key, cached := range c.data {
		if now.Sub(cached.timestamp) > c.ttl {
			delete(c.data, key)
		}
	}

	if len(c.data) >= c.maxSize {
		oldest := now
		oldestKey := ""
		for key, cached := range c.data {
			if cached.timestamp.Before(oldest) {
				oldest = cached.timestamp
				oldestKey = key
			}
		}
		if oldestKey != "" {
			delete(c.data, oldestKey)
		}
	}
}

// Clear limpa todo o cache
func (c *SearchCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*cachedResult)
}
