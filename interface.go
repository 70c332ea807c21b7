package cachedresource

import (
	"context"
	"time"
)

// Backend is an interface for a cache backend.
// Implementations must be thread-safe.
type Backend interface {
	// Read retrieves the value stored under the given key.
	// It returns false if the key is missing or its entry has expired.
	Read(ctx context.Context, key string) (any, bool, error)

	// Write stores a value under the given key.
	// The entry expires after expiresIn. A non-positive expiresIn stores
	// the entry without an expiry.
	// If the key already exists, it should overwrite the existing entry.
	Write(ctx context.Context, key string, value any, expiresIn time.Duration) error

	// Delete removes the entry stored under the given key.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// FetchFunc loads a single resource from its origin.
type FetchFunc func(ctx context.Context) (any, error)

// CollectionFetchFunc loads a collection of resources from its origin.
type CollectionFetchFunc func(ctx context.Context) ([]any, error)

// MemberKeyFunc returns the cache key component identifying an
// individual member of a fetched collection.
type MemberKeyFunc func(member any) string
