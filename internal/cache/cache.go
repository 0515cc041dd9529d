// Package cache implements SpecCache (spec section 11's DOMAIN STACK): a
// small key-value store over *validated* ProviderSpec documents, keyed by
// the xxhash of their raw bytes. It never holds a translation result or a
// provider response — the Non-goals forbid both — so a cache miss and a
// cache hit are required to produce the identical ProviderSpec value.
package cache

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"specado/internal/specs"
)

// SpecCache is implemented by both backends below.
type SpecCache interface {
	Get(ctx context.Context, key string) (*specs.ProviderSpec, bool, error)
	Set(ctx context.Context, key string, spec *specs.ProviderSpec) error
	Close() error
}

// KeyFor returns the cache key for raw ProviderSpec JSON bytes: the
// document's content hash, not its file path, so two operators pointing at
// byte-identical specs share a cache entry and an edited file invalidates
// automatically.
func KeyFor(raw []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}
