package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"specado/internal/specs"
)

// LRUCache is the in-process SpecCache backend: a bounded least-recently-
// used map, adequate for a single `serve` instance.
type LRUCache struct {
	inner *lru.Cache[string, *specs.ProviderSpec]
}

// NewLRUCache constructs an LRUCache holding at most size entries.
func NewLRUCache(size int) (*LRUCache, error) {
	if size <= 0 {
		size = 128
	}
	inner, err := lru.New[string, *specs.ProviderSpec](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{inner: inner}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) (*specs.ProviderSpec, bool, error) {
	spec, ok := c.inner.Get(key)
	return spec, ok, nil
}

func (c *LRUCache) Set(_ context.Context, key string, spec *specs.ProviderSpec) error {
	c.inner.Add(key, spec)
	return nil
}

func (c *LRUCache) Close() error { return nil }
