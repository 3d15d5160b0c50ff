package cache

import (
	"reflect"
	"time"

	"github.com/leonardcser/litecache/internal/codec"
)

// KV is the point-level contract shared by Store and Client.
// Implementations must be safe for concurrent use by multiple goroutines.
type KV interface {
	PutContent(key string, p codec.Payload, ttl time.Duration) (bool, error)
	GetContent(key string) (codec.Payload, bool, error)
}

// Cache is the full cache contract. Storage faults never surface as errors:
// they turn into false, zero values or empty slices. Errors are reserved for
// invalid arguments.
type Cache interface {
	KV
	Exists(key string) (bool, error)
	IsExpired(key string) (bool, error)
	GetExpiration(key string) (time.Time, bool, error)
	GetKeys() []KeyState
	EmptyExpired() bool
	EmptyAll() bool
	SizeInBytes() int64
	Shrink() bool
	Close() error
}

// Add stores data under key for ttl. Strings are stored verbatim, other
// values are encoded.
func Add[T any](kv KV, key string, data T, ttl time.Duration) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	if isNil(data) {
		return false, invalidArgument("data", "data can not be nil")
	}
	p, err := codec.Encode(data)
	if err != nil {
		return false, encodingError(err)
	}
	return kv.PutContent(key, p, ttl)
}

// Get returns the value stored under key, or the zero T if it is absent.
// Expired entries are still returned.
func Get[T any](kv KV, key string) (T, error) {
	var zero T
	if err := validKey(key); err != nil {
		return zero, err
	}
	p, ok, err := kv.GetContent(key)
	if err != nil || !ok {
		return zero, err
	}
	v, err := codec.Decode[T](p)
	if err != nil {
		return zero, decodingError(key, err)
	}
	return v, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
