package cache

import (
	"time"

	"github.com/leonardcser/litecache/internal/codec"
)

// Simple JSON protocol for the cache daemon over a Unix domain socket.
// Requests and responses alternate on one connection using json.Encoder/Decoder.

const (
	OpAdd           = "add"
	OpGet           = "get"
	OpExists        = "exists"
	OpIsExpired     = "is_expired"
	OpGetExpiration = "get_expiration"
	OpKeys          = "keys"
	OpEmptyExpired  = "empty_expired"
	OpEmptyAll      = "empty_all"
	OpSize          = "size"
	OpShrink        = "shrink"
)

type Request struct {
	Op    string        `json:"op"`
	Key   string        `json:"key,omitempty"`
	Kind  codec.Kind    `json:"kind,omitempty"`
	Value string        `json:"value,omitempty"`
	TTL   time.Duration `json:"ttl,omitempty"`
}

// Response carries the result of one Request. OK is the boolean result of
// the operation, or whether the key was found for lookups. Error is set only
// when the request itself was rejected.
type Response struct {
	OK         bool       `json:"ok"`
	Kind       codec.Kind `json:"kind,omitempty"`
	Value      string     `json:"value,omitempty"`
	Expiration *time.Time `json:"expiration,omitempty"`
	Keys       []KeyState `json:"keys,omitempty"`
	Size       int64      `json:"size,omitempty"`
	Code       string     `json:"code,omitempty"`
	Error      string     `json:"error,omitempty"`
}
