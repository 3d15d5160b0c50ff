// Package codec converts typed values to and from the string form kept in the store.
package codec

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Kind tags how a Payload's Data was produced.
type Kind uint8

const (
	// KindRaw is text stored verbatim.
	KindRaw Kind = iota + 1
	// KindEncoded is a JSON document produced by Encode.
	KindEncoded
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindEncoded:
		return "encoded"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k == KindRaw || k == KindEncoded }

// Payload is the storage representation of a cached value.
type Payload struct {
	Kind Kind
	Data string
}

// Raw wraps s as a verbatim payload.
func Raw(s string) Payload { return Payload{Kind: KindRaw, Data: s} }

// Encode returns v as a payload. Strings pass through unchanged; everything
// else is marshaled to JSON. A reference cycle in v is reported as an error.
func Encode(v any) (Payload, error) {
	if s, ok := v.(string); ok {
		return Raw(s), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Kind: KindEncoded, Data: string(b)}, nil
}

// Decode rebuilds a T from p. A string target receives Data verbatim
// whatever the kind, and an interface target receives raw text as a string.
func Decode[T any](p Payload) (T, error) {
	var out T
	if !p.Kind.Valid() {
		return out, fmt.Errorf("unknown payload %s", p.Kind)
	}
	switch t := any(&out).(type) {
	case *string:
		*t = p.Data
		return out, nil
	case *any:
		if p.Kind == KindRaw {
			*t = p.Data
			return out, nil
		}
	}
	// raw text may still be valid JSON for the target (numbers, bools)
	if err := json.Unmarshal([]byte(p.Data), &out); err != nil {
		return out, fmt.Errorf("%s payload into %T: %w", p.Kind, out, err)
	}
	return out, nil
}
