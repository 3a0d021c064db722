package enrichment

import (
	"sync"

	"cnpjserver/registry"
)

// ResultCache cache de resultados de uma execução, indexado pelo CNPJ normalizado.
// Cada chave é escrita uma única vez; o RWMutex mantém o cache seguro caso as
// consultas venham a ser paralelizadas.
type ResultCache struct {
	mu    sync.RWMutex
	data  map[string]*registry.LookupResult
	stats CacheStats
}

// CacheStats estatísticas do cache
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// NewResultCache cria um cache vazio
func NewResultCache() *ResultCache {
	return &ResultCache{
		data: make(map[string]*registry.LookupResult),
	}
}

// Get retorna o resultado de um CNPJ, se presente
func (c *ResultCache) Get(cnpj string) (*registry.LookupResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.data[cnpj]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return result, ok
}

// Set grava o resultado de um CNPJ; a primeira escrita vence
func (c *ResultCache) Set(cnpj string, result *registry.LookupResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[cnpj]; exists {
		return
	}
	c.data[cnpj] = result
	c.stats.Size = len(c.data)
}

// Stats retorna uma cópia das estatísticas
func (c *ResultCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = len(c.data)
	return stats
}
