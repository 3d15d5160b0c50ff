package cache

import (
	"math"
	"time"
)

// State is the derived expiration state of a key.
type State int

const (
	StateNone State = iota
	StateExpired
	StateActive
)

func (s State) String() string {
	switch s {
	case StateExpired:
		return "expired"
	case StateActive:
		return "active"
	default:
		return "none"
	}
}

// KeyState pairs a stored key with its state at scan time.
type KeyState struct {
	Key   string `json:"key"`
	State State  `json:"state"`
}

// Expiration instants are persisted as int64 UnixNano and saturate to these bounds.
var (
	MinExpiration = time.Unix(0, math.MinInt64).UTC()
	MaxExpiration = time.Unix(0, math.MaxInt64).UTC()
)

// expiresAt returns now+ttl in UTC, clamped to [MinExpiration, MaxExpiration].
func expiresAt(now time.Time, ttl time.Duration) time.Time {
	n := now.UnixNano()
	if now.Before(MinExpiration) {
		n = math.MinInt64
	} else if now.After(MaxExpiration) {
		n = math.MaxInt64
	}
	d := int64(ttl)
	switch {
	case d > 0 && n > math.MaxInt64-d:
		return MaxExpiration
	case d < 0 && n < math.MinInt64-d:
		return MinExpiration
	}
	return time.Unix(0, n+d).UTC()
}

// expired reports whether an entry expiring at exp is stale at now.
func expired(now, exp time.Time) bool { return now.UTC().After(exp) }

func stateAt(now, exp time.Time) State {
	if expired(now, exp) {
		return StateExpired
	}
	return StateActive
}
