package cachedresource

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/singleflight"

	"github.com/italijancic-th/cached-resource/expiration"
)

// Entry is a cached resource value together with its freshness deadline.
// The backend keeps an entry beyond FreshUntil for the configured
// race-condition grace window, during which the stale value is still
// served while a refresh runs out of band.
type Entry struct {
	// Value is the cached resource value.
	Value any

	// FreshUntil is the time after which the entry is stale.
	FreshUntil time.Time
}

// ResourceCache intercepts resource fetches for a single entity and
// serves previously fetched responses from the entity's cache backend.
//
// Each fetch resolves the entity's configuration from Store, so
// reconfiguring the entity takes effect on the next call. Concurrent
// fetches of the same key collapse into a single flight.
type ResourceCache struct {
	// Store resolves the entity's configuration.
	Store *Store

	// Entity is the resource entity name. Cache keys are prefixed with it.
	Entity string

	// Policy computes the effective TTL for cache writes.
	Policy TTLPolicy

	// Staleness decides whether a cached entry is still fresh.
	// If not set, expiration.GeneralExpirationPolicy is used.
	Staleness expiration.ExpirationPolicy

	// Clock is the clock used for freshness deadlines.
	// If not set, SystemClock is used.
	Clock Clock

	// MemberKey derives the cache key component of an individual
	// collection member. It is required for collection synchronization.
	MemberKey MemberKeyFunc

	// Background returns the context for background refreshes.
	// The default is context.Background.
	Background func() context.Context

	group singleflight.Group
}

// Fetch returns the resource identified by id, serving it from the
// cache when possible. A fresh hit is returned as-is. A stale hit
// within the race-condition grace window is returned as-is while a
// background refresh replaces it. On a miss, fetch is called once per
// in-flight key and the response is written back with the effective TTL.
// When caching is disabled for the entity, fetch is called directly.
func (r *ResourceCache) Fetch(ctx context.Context, id any, fetch FetchFunc) (any, error) {
	cfg := r.Store.Resolve(r.Entity)
	if !cfg.Enabled {
		return fetch(ctx)
	}

	key := r.key(id)
	if entry, ok, err := r.read(ctx, cfg, key); err != nil {
		return nil, err
	} else if ok {
		if !r.staleness().IsExpired(r.now(), entry.FreshUntil) {
			cfg.Logger.DebugContext(ctx, "read fresh cache entry", slog.String("key", key))
			return entry.Value, nil
		}

		cfg.Logger.DebugContext(ctx, "read stale cache entry", slog.String("key", key))
		r.refresh(cfg, key, fetch)
		return entry.Value, nil
	}

	cfg.Logger.DebugContext(ctx, "cache miss", slog.String("key", key))
	value, err, _ := r.group.Do(key, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return value, r.write(ctx, cfg, key, value)
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// FetchCollection returns the collection of resources identified by
// args, serving it from the cache when the entity caches collections
// and args matches the configured eligible signature. When collection
// synchronization is enabled and MemberKey is set, each member is also
// written under its own key so that later single fetches hit.
func (r *ResourceCache) FetchCollection(ctx context.Context, args []any, fetch CollectionFetchFunc) ([]any, error) {
	cfg := r.Store.Resolve(r.Entity)
	if !cfg.Enabled || !cfg.CacheCollections || !collectionCacheable(cfg, args) {
		return fetch(ctx)
	}

	key := r.key(args...)
	if entry, ok, err := r.read(ctx, cfg, key); err != nil {
		return nil, err
	} else if ok {
		members, isCollection := entry.Value.([]any)
		if isCollection {
			if !r.staleness().IsExpired(r.now(), entry.FreshUntil) {
				cfg.Logger.DebugContext(ctx, "read fresh cache collection", slog.String("key", key))
				return members, nil
			}

			cfg.Logger.DebugContext(ctx, "read stale cache collection", slog.String("key", key))
			r.refresh(cfg, key, func(ctx context.Context) (any, error) {
				members, err := fetch(ctx)
				if err != nil {
					return nil, err
				}
				return members, r.synchronize(ctx, cfg, members)
			})
			return members, nil
		}
	}

	cfg.Logger.DebugContext(ctx, "cache miss", slog.String("key", key))
	value, err, _ := r.group.Do(key, func() (any, error) {
		members, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := r.write(ctx, cfg, key, members); err != nil {
			return nil, err
		}
		return members, r.synchronize(ctx, cfg, members)
	})
	if err != nil {
		return nil, err
	}
	return value.([]any), nil
}

// Clear removes the cached entry for the resource identified by id.
func (r *ResourceCache) Clear(ctx context.Context, id any) error {
	cfg := r.Store.Resolve(r.Entity)
	key := r.key(id)
	if err := cfg.Cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	cfg.Logger.DebugContext(ctx, "cleared cache entry", slog.String("key", key))
	return nil
}

// ClearCollection removes the cached collection entry for args.
func (r *ResourceCache) ClearCollection(ctx context.Context, args ...any) error {
	cfg := r.Store.Resolve(r.Entity)
	key := r.key(args...)
	if err := cfg.Cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	cfg.Logger.DebugContext(ctx, "cleared cache collection", slog.String("key", key))
	return nil
}

// key builds the cache key for the given request signature.
func (r *ResourceCache) key(parts ...any) string {
	var b strings.Builder
	b.WriteString(r.Entity)
	for _, part := range parts {
		b.WriteByte('/')
		fmt.Fprintf(&b, "%v", part)
	}
	return b.String()
}

func (r *ResourceCache) read(ctx context.Context, cfg *Config, key string) (Entry, bool, error) {
	value, ok, err := cfg.Cache.Read(ctx, key)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read cache entry %q: %w", key, err)
	}
	if !ok {
		return Entry{}, false, nil
	}

	entry, ok := value.(Entry)
	if !ok {
		// foreign value under our key: treat as a miss and let the
		// write path overwrite it
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// write stores a value with the entity's effective TTL. The backend
// keeps the entry for the TTL plus the race-condition grace window so
// that a stale value remains servable while it is being refreshed.
func (r *ResourceCache) write(ctx context.Context, cfg *Config, key string, value any) error {
	ttl := r.Policy.EffectiveTTL(cfg)
	entry := Entry{Value: value, FreshUntil: r.now().Add(ttl)}
	if err := cfg.Cache.Write(ctx, key, entry, ttl+cfg.RaceConditionTTL); err != nil {
		return fmt.Errorf("write cache entry %q: %w", key, err)
	}
	cfg.Logger.DebugContext(ctx, "wrote cache entry", slog.String("key", key), slog.Duration("ttl", ttl))
	return nil
}

// synchronize writes each collection member under its own key.
func (r *ResourceCache) synchronize(ctx context.Context, cfg *Config, members []any) error {
	if !cfg.CollectionSynchronize || r.MemberKey == nil {
		return nil
	}
	for _, member := range members {
		if err := r.write(ctx, cfg, r.key(r.MemberKey(member)), member); err != nil {
			return err
		}
	}
	return nil
}

// refresh re-fetches a stale entry out of band. Concurrent refreshes of
// the same key collapse into one flight, and panics from the fetch
// function are recovered and logged instead of crashing the process.
func (r *ResourceCache) refresh(cfg *Config, key string, fetch FetchFunc) {
	go func() {
		recovered := panics.Try(func() {
			_, err, _ := r.group.Do(key, func() (any, error) {
				ctx := r.background()
				value, err := fetch(ctx)
				if err != nil {
					return nil, err
				}
				return value, r.write(ctx, cfg, key, value)
			})
			if err != nil {
				cfg.Logger.Error("cache refresh failed", slog.String("key", key), slog.Any("error", err))
			}
		})
		if recovered != nil {
			cfg.Logger.Error("cache refresh panicked", slog.String("key", key), slog.Any("error", recovered.AsError()))
		}
	}()
}

func (r *ResourceCache) staleness() expiration.ExpirationPolicy {
	if r.Staleness != nil {
		return r.Staleness
	}
	return expiration.GeneralExpirationPolicy{}
}

func (r *ResourceCache) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now()
	}
	return SystemClock.Now()
}

func (r *ResourceCache) background() context.Context {
	if r.Background != nil {
		return r.Background()
	}
	return context.Background()
}

// collectionCacheable reports whether the collection-fetch argument
// signature is eligible for caching under the given configuration.
func collectionCacheable(cfg *Config, args []any) bool {
	if len(args) != len(cfg.CollectionArguments) {
		return false
	}
	for i := range args {
		// Arguments may carry non-comparable values such as slices, so
		// compare structurally instead of with ==.
		if !reflect.DeepEqual(args[i], cfg.CollectionArguments[i]) {
			return false
		}
	}
	return true
}
