package cachedresource

import (
	"math/rand/v2"
	"time"

	"github.com/italijancic-th/cached-resource/expiration"
)

// TTLPolicy computes the effective expiry for a cache write from a
// resolved configuration record.
type TTLPolicy struct {
	// Random is the random number generator used for TTL jitter.
	// If not set, the default system random generator is used.
	// This can be set to a specific random generator for deterministic behavior in tests.
	Random *rand.Rand
}

// EffectiveTTL returns the TTL to apply to a cache write under the
// given configuration. When TTL randomization is disabled the
// configured TTL is returned unchanged. Otherwise the result is sampled
// uniformly from [ttl*scale.Lower, ttl*scale.Upper]; see
// expiration.Jitter for the sampling contract, including the
// unvalidated-range precondition.
func (p TTLPolicy) EffectiveTTL(cfg *Config) time.Duration {
	if !cfg.TTLRandomization {
		return cfg.TTL
	}

	jitter := expiration.Jitter{Scale: cfg.TTLRandomizationScale, Random: p.Random}
	return jitter.EffectiveTTL(cfg.TTL)
}
