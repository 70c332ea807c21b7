package ttlstorage

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	cachedresource "github.com/italijancic-th/cached-resource"
)

// Backend is a cachedresource.Backend backed by a ttlcache instance.
// New starts the expiration janitor; Close stops it.
type Backend struct {
	cache *ttlcache.Cache[string, any]
}

var _ cachedresource.Backend = (*Backend)(nil)

// New creates a new ttlcache-backed Backend.
// Reading an entry does not extend its lifetime.
func New(opts ...ttlcache.Option[string, any]) *Backend {
	opts = append([]ttlcache.Option[string, any]{
		ttlcache.WithDisableTouchOnHit[string, any](),
	}, opts...)

	cache := ttlcache.New(opts...)
	go cache.Start()
	return &Backend{cache: cache}
}

// Read retrieves the value stored under the given key.
// Expired entries are treated as misses.
func (b *Backend) Read(_ context.Context, key string) (any, bool, error) {
	item := b.cache.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

// Write stores a value under the given key.
// A non-positive expiresIn stores the entry without an expiry.
func (b *Backend) Write(_ context.Context, key string, value any, expiresIn time.Duration) error {
	ttl := expiresIn
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	b.cache.Set(key, value, ttl)
	return nil
}

// Delete removes the entry stored under the given key.
func (b *Backend) Delete(_ context.Context, key string) error {
	b.cache.Delete(key)
	return nil
}

// Close stops the expiration janitor.
func (b *Backend) Close() {
	b.cache.Stop()
}
