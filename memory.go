package cachedresource

import (
	"context"
	"sync"
	"time"

	"github.com/italijancic-th/cached-resource/expiration"
	"github.com/italijancic-th/cached-resource/internal/keyhash"
)

// DefaultBucketsSize is the default number of buckets in the in-memory backend.
var DefaultBucketsSize = 64

// MemoryOption is the interface for the options of the in-memory backend.
type MemoryOption interface {
	apply(*memoryOptions)
}

type memoryOptionFunc func(*memoryOptions)

func (f memoryOptionFunc) apply(o *memoryOptions) {
	f(o)
}

// WithBucketsSize sets the number of buckets in the backend.
// The number of buckets must be a natural number.
func WithBucketsSize(bucketsSize int) MemoryOption {
	if bucketsSize <= 0 {
		panic("bucketsSize must be natural number")
	}
	return memoryOptionFunc(func(o *memoryOptions) {
		o.bucketsSize = bucketsSize
	})
}

// WithClock sets the clock used for expiry checks.
func WithClock(clock Clock) MemoryOption {
	return memoryOptionFunc(func(o *memoryOptions) {
		o.clock = clock
	})
}

// WithCloner sets the value cloner applied on writes and reads.
func WithCloner(cloner ValueCloner) MemoryOption {
	return memoryOptionFunc(func(o *memoryOptions) {
		o.cloner = cloner
	})
}

// WithExpirationPolicy sets the staleness policy used for expiry checks.
func WithExpirationPolicy(policy expiration.ExpirationPolicy) MemoryOption {
	return memoryOptionFunc(func(o *memoryOptions) {
		o.policy = policy
	})
}

type memoryOptions struct {
	bucketsSize int
	clock       Clock
	cloner      ValueCloner
	policy      expiration.ExpirationPolicy
}

func defaultMemoryOptions() memoryOptions {
	return memoryOptions{
		bucketsSize: DefaultBucketsSize,
		clock:       SystemClock,
		cloner:      ReflectValueCloner{},
		policy:      expiration.GeneralExpirationPolicy{},
	}
}

type memoryEntry struct {
	value     any
	expiresAt time.Time // zero means no expiry
}

type memoryBucket struct {
	m  map[string]memoryEntry
	mu sync.RWMutex
}

// MemoryBackend is an in-memory Backend with no persistence.
// Keys are distributed across buckets to reduce lock contention, and
// stored values are cloned on write and on read so that callers cannot
// mutate cached state through shared references.
type MemoryBackend struct {
	buckets []*memoryBucket
	options memoryOptions
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates a new in-memory cache backend.
// It is the default backend of a configuration record constructed
// without a host context.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	options := defaultMemoryOptions()
	for _, opt := range opts {
		opt.apply(&options)
	}

	buckets := make([]*memoryBucket, options.bucketsSize)
	for i := range buckets {
		buckets[i] = &memoryBucket{m: map[string]memoryEntry{}}
	}
	return &MemoryBackend{
		buckets: buckets,
		options: options,
	}
}

// resolveBucket returns the bucket that corresponds to the given key.
func (b *MemoryBackend) resolveBucket(key string) *memoryBucket {
	index := keyhash.Sum(key) % len(b.buckets)
	if index < 0 {
		index *= -1
	}
	return b.buckets[index]
}

// Read retrieves the value stored under the given key.
// Expired entries are treated as misses.
func (b *MemoryBackend) Read(_ context.Context, key string) (any, bool, error) {
	bucket := b.resolveBucket(key)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()

	e, ok := bucket.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && b.options.policy.IsExpired(b.options.clock.Now(), e.expiresAt) {
		return nil, false, nil
	}
	return b.options.cloner.CloneValue(e.value), true, nil
}

// Write stores a value under the given key.
// A non-positive expiresIn stores the entry without an expiry.
func (b *MemoryBackend) Write(_ context.Context, key string, value any, expiresIn time.Duration) error {
	e := memoryEntry{value: b.options.cloner.CloneValue(value)}
	if expiresIn > 0 {
		e.expiresAt = b.options.clock.Now().Add(expiresIn)
	}

	bucket := b.resolveBucket(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	bucket.m[key] = e
	return nil
}

// Delete removes the entry stored under the given key.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	bucket := b.resolveBucket(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	delete(bucket.m, key)
	return nil
}
