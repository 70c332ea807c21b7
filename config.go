package cachedresource

import (
	"log/slog"
	"time"

	"github.com/italijancic-th/cached-resource/expiration"
)

// Option names recognized by NewConfig and Store.Configure.
// Any other name is preserved verbatim as an extension field.
const (
	OptionEnabled               = "enabled"
	OptionTTL                   = "ttl"
	OptionRaceConditionTTL      = "race_condition_ttl"
	OptionCollectionSynchronize = "collection_synchronize"
	OptionCollectionArguments   = "collection_arguments"
	OptionCacheCollections      = "cache_collections"
	OptionTTLRandomization      = "ttl_randomization"
	OptionTTLRandomizationScale = "ttl_randomization_scale"
	OptionCache                 = "cache"
	OptionLogger                = "logger"
)

// CollectionAll is the collection-fetch argument signature that is
// eligible for caching by default.
const CollectionAll = "all"

// Default values applied to every field that is not supplied at
// construction time.
const (
	DefaultTTL              = 604800 * time.Second
	DefaultRaceConditionTTL = 86400 * time.Second
)

// DefaultTTLRandomizationScale is the default multiplier range for TTL jitter.
var DefaultTTLRandomizationScale = expiration.Range{Lower: 1, Upper: 2}

// Options is a mapping of option name to value, the configuration input
// surface of a resource entity. Recognized names set the corresponding
// Config field; unrecognized names are stored verbatim as extension
// fields and never rejected.
type Options map[string]any

// Config holds the caching behavior of a single resource entity.
// Every field resolves to its documented default when not supplied, so
// a Config obtained from NewConfig or a Store is never partially unset.
type Config struct {
	// Enabled turns response caching on or off for the entity.
	Enabled bool

	// TTL is how long a cached response is considered fresh.
	TTL time.Duration

	// RaceConditionTTL is the grace window during which a stale entry
	// may still be served while a refresh is in flight.
	RaceConditionTTL time.Duration

	// CollectionSynchronize enables writing individually keyed entries
	// for each member of a cached collection.
	CollectionSynchronize bool

	// CollectionArguments is the collection-fetch argument signature
	// that is eligible for caching.
	CollectionArguments []any

	// CacheCollections enables caching of collection fetches.
	CacheCollections bool

	// TTLRandomization enables jittered TTLs for cache writes.
	TTLRandomization bool

	// TTLRandomizationScale bounds the multiplier applied to the TTL
	// when randomization is enabled.
	TTLRandomizationScale expiration.Range

	// Cache is the backend that stores cached responses.
	Cache Backend

	// Logger receives diagnostic output from the caching layer.
	Logger *slog.Logger

	// Extensions holds option values passed under unrecognized names,
	// preserved verbatim and retrievable with Extension.
	Extensions map[string]any
}

// NewConfig constructs a Config from documented defaults with the given
// options applied on top. It never fails: values of an unexpected type
// are preserved as extension fields instead of being rejected.
func NewConfig(opts Options) *Config {
	return newConfig(nil, opts)
}

// newConfig builds a record, taking the default cache backend and
// logger from the host context when one is present. The host is
// consulted once here, not on later field access.
func newConfig(host *HostContext, opts Options) *Config {
	c := &Config{
		Enabled:               true,
		TTL:                   DefaultTTL,
		RaceConditionTTL:      DefaultRaceConditionTTL,
		CollectionArguments:   []any{CollectionAll},
		CacheCollections:      true,
		TTLRandomizationScale: DefaultTTLRandomizationScale,
		Extensions:            map[string]any{},
	}
	if host != nil {
		c.Cache = host.Cache
		c.Logger = host.Logger
	}
	if c.Cache == nil {
		c.Cache = NewMemoryBackend()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	for name, value := range opts {
		c.apply(name, value)
	}
	return c
}

// apply sets the field named by a recognized option, coercing the value
// where the field type allows it. A recognized name carrying a value
// that cannot be coerced falls through to the extension fields, keeping
// the configuration surface free of errors.
func (c *Config) apply(name string, value any) {
	switch name {
	case OptionEnabled:
		if b, ok := value.(bool); ok {
			c.Enabled = b
			return
		}
	case OptionTTL:
		if d, ok := coerceDuration(value); ok {
			c.TTL = d
			return
		}
	case OptionRaceConditionTTL:
		if d, ok := coerceDuration(value); ok {
			c.RaceConditionTTL = d
			return
		}
	case OptionCollectionSynchronize:
		if b, ok := value.(bool); ok {
			c.CollectionSynchronize = b
			return
		}
	case OptionCollectionArguments:
		if args, ok := value.([]any); ok {
			c.CollectionArguments = args
			return
		}
	case OptionCacheCollections:
		if b, ok := value.(bool); ok {
			c.CacheCollections = b
			return
		}
	case OptionTTLRandomization:
		if b, ok := value.(bool); ok {
			c.TTLRandomization = b
			return
		}
	case OptionTTLRandomizationScale:
		if r, ok := coerceRange(value); ok {
			c.TTLRandomizationScale = r
			return
		}
	case OptionCache:
		if b, ok := value.(Backend); ok {
			c.Cache = b
			return
		}
	case OptionLogger:
		if l, ok := value.(*slog.Logger); ok {
			c.Logger = l
			return
		}
	}
	c.Extensions[name] = value
}

// Extension returns the extension field stored under the given name.
func (c *Config) Extension(name string) (any, bool) {
	v, ok := c.Extensions[name]
	return v, ok
}

// coerceDuration interprets bare numbers as seconds.
func coerceDuration(value any) (time.Duration, bool) {
	switch v := value.(type) {
	case time.Duration:
		return v, true
	case int:
		return time.Duration(v) * time.Second, true
	case int64:
		return time.Duration(v) * time.Second, true
	case float64:
		return time.Duration(v * float64(time.Second)), true
	default:
		return 0, false
	}
}

// coerceRange accepts range-like inputs for the randomization scale.
// The bounds are taken as given; lower > upper is not validated.
func coerceRange(value any) (expiration.Range, bool) {
	switch v := value.(type) {
	case expiration.Range:
		return v, true
	case [2]float64:
		return expiration.Range{Lower: v[0], Upper: v[1]}, true
	case []float64:
		if len(v) == 2 {
			return expiration.Range{Lower: v[0], Upper: v[1]}, true
		}
	case [2]int:
		return expiration.Range{Lower: float64(v[0]), Upper: float64(v[1])}, true
	case []int:
		if len(v) == 2 {
			return expiration.Range{Lower: float64(v[0]), Upper: float64(v[1])}, true
		}
	}
	return expiration.Range{}, false
}
