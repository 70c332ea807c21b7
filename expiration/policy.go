package expiration

import "time"

// ExpirationPolicy is the interface for the staleness checker.
// Implementations determine when cached values should be considered stale.
type ExpirationPolicy interface {
	// IsExpired returns true if the value is expired.
	// The now parameter represents the current time, and expiresAt is the value's expiration time.
	IsExpired(now, expiresAt time.Time) bool
}

// GeneralExpirationPolicy is a policy that expires a value at a specific time.
// A value is considered expired if the current time is at or after the
// expiration time.
type GeneralExpirationPolicy struct{}

var _ ExpirationPolicy = GeneralExpirationPolicy{}

// IsExpired returns true if the current time is at or after the specified expiration time.
func (GeneralExpirationPolicy) IsExpired(now, expiresAt time.Time) bool {
	return !expiresAt.After(now)
}

// NeverExpirationPolicy is a policy that never expires a value.
// This is useful for permanent cache entries that should remain valid indefinitely.
type NeverExpirationPolicy struct{}

var _ ExpirationPolicy = NeverExpirationPolicy{}

// IsExpired always returns false, indicating that values never expire.
// This policy ignores the expiration time completely.
func (NeverExpirationPolicy) IsExpired(now, expiresAt time.Time) bool {
	return false
}
