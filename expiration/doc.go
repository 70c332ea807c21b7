// Package expiration provides expiry primitives for cached resources.
//
// This package defines the ExpirationPolicy interface that decides when a
// cached value is stale, plus the Jitter sampler that spreads effective
// TTLs over a configurable range so that many entries written around the
// same time do not all expire at once.
package expiration
