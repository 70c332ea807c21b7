package expiration

import (
	"math/rand/v2"
	"time"
)

// Range is a closed numeric interval used as a TTL multiplier.
type Range struct {
	// Lower is the lower bound of the interval.
	Lower float64

	// Upper is the upper bound of the interval.
	Upper float64
}

// Jitter samples an effective TTL uniformly from the closed interval
// [ttl*Scale.Lower, ttl*Scale.Upper]. By writing entries with jittered
// TTLs, entries cached around the same time expire at different times,
// preventing a simultaneous mass expiry on the backing store
// (thundering herd).
//
// The scale range is not validated: if Lower is greater than Upper, the
// sample covers the same interval with the bounds swapped. Callers are
// responsible for supplying a well-ordered range.
type Jitter struct {
	// Scale bounds the multiplier applied to the TTL.
	Scale Range

	// Random is the random number generator used for sampling.
	// If not set, the default system random generator is used.
	// This can be set to a specific random generator for deterministic behavior in tests.
	Random *rand.Rand
}

// EffectiveTTL returns the jittered TTL for the given base TTL.
// A zero ttl always yields zero, and a zero-width scale yields exactly
// ttl*Scale.Lower on every call. The sample is drawn uniformly over the
// real interval, not just the endpoints.
func (j *Jitter) EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}

	lower := float64(ttl) * j.Scale.Lower
	upper := float64(ttl) * j.Scale.Upper
	if lower == upper {
		return time.Duration(lower)
	}
	return time.Duration(lower + j.randFloat64()*(upper-lower))
}

func (j *Jitter) randFloat64() float64 {
	if j.Random == nil {
		return rand.Float64()
	}
	return j.Random.Float64()
}
