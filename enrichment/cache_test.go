package enrichment

import (
	"testing"

	"cnpjserver/registry"
)

func TestResultCacheGetSet(t *testing.T) {
	cache := NewResultCache()

	if _, ok := cache.Get("11222333000181"); ok {
		t.Error("Get() on empty cache returned ok")
	}

	result := &registry.LookupResult{CNPJ: "11222333000181", Status: registry.StatusSuccess}
	cache.Set("11222333000181", result)

	got, ok := cache.Get("11222333000181")
	if !ok {
		t.Fatal("Get() after Set() returned !ok")
	}
	if got != result {
		t.Error("Get() returned a different result instance")
	}
}

func TestResultCacheFirstWriteWins(t *testing.T) {
	cache := NewResultCache()

	first := &registry.LookupResult{CNPJ: "11222333000181", Status: registry.StatusSuccess}
	second := &registry.LookupResult{CNPJ: "11222333000181", Status: registry.StatusNotFound}

	cache.Set("11222333000181", first)
	cache.Set("11222333000181", second)

	got, _ := cache.Get("11222333000181")
	if got != first {
		t.Error("second Set() overwrote the first result")
	}
}

func TestResultCacheStats(t *testing.T) {
	cache := NewResultCache()
	cache.Set("a", &registry.LookupResult{})
	cache.Set("b", &registry.LookupResult{})

	cache.Get("a")
	cache.Get("a")
	cache.Get("missing")

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Size != 2 {
		t.Errorf("Size = %d, want 2", stats.Size)
	}
}
