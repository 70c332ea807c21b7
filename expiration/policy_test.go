package expiration_test

import (
	"testing"
	"time"

	"github.com/italijancic-th/cached-resource/expiration"
)

func TestGeneralExpirationPolicy(t *testing.T) {
	t.Parallel()

	policy := expiration.GeneralExpirationPolicy{}
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "not expired when expiry is in future",
			expiresAt: now.Add(1),
			want:      false,
		},
		{
			name:      "expired when expiry is exactly now",
			expiresAt: now,
			want:      true,
		},
		{
			name:      "expired when expiry is in past",
			expiresAt: now.Add(-1),
			want:      true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := policy.IsExpired(now, tt.expiresAt); got != tt.want {
				t.Errorf("GeneralExpirationPolicy.IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeverExpirationPolicy(t *testing.T) {
	t.Parallel()

	policy := expiration.NeverExpirationPolicy{}
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
	}{
		{
			name:      "not expired when expiry is in future",
			expiresAt: now.Add(1),
		},
		{
			name:      "not expired when expiry is exactly now",
			expiresAt: now,
		},
		{
			name:      "not expired even when expiry is in past",
			expiresAt: now.Add(-1),
		},
		{
			name:      "not expired even when expiry is far in past",
			expiresAt: now.Add(-1000 * time.Hour),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := policy.IsExpired(now, tt.expiresAt); got {
				t.Errorf("NeverExpirationPolicy.IsExpired() = %v, want false", got)
			}
		})
	}
}
