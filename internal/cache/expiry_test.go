package cache

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiresAt(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.FixedZone("x", -7*3600))

	got := expiresAt(now, time.Minute)
	assert.True(t, got.Equal(now.Add(time.Minute)))
	assert.Equal(t, time.UTC, got.Location())

	assert.True(t, expiresAt(now, 0).Equal(now))
	assert.True(t, expiresAt(now, -time.Hour).Equal(now.Add(-time.Hour)))
}

func TestExpiresAt_Saturates(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	// 2026 + ~292 years runs past the last representable instant.
	assert.Equal(t, MaxExpiration, expiresAt(now, time.Duration(math.MaxInt64)))
	past := time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, MinExpiration, expiresAt(past, time.Duration(math.MinInt64)))

	assert.Equal(t, MaxExpiration, expiresAt(MaxExpiration, time.Nanosecond))
	assert.Equal(t, MinExpiration, expiresAt(MinExpiration, -time.Nanosecond))
	assert.Equal(t, MaxExpiration, expiresAt(time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour))
}

func TestStateAt(t *testing.T) {
	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, StateActive, stateAt(exp, exp))
	assert.Equal(t, StateActive, stateAt(exp.Add(-time.Second), exp))
	assert.Equal(t, StateExpired, stateAt(exp.Add(time.Nanosecond), exp))

	assert.Equal(t, "none", StateNone.String())
	assert.Equal(t, "expired", StateExpired.String())
	assert.Equal(t, "active", StateActive.String())
}
