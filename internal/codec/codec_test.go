package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	Name string `json:"name"`
	Next *node  `json:"next,omitempty"`
}

func TestEncode_StringPassesThrough(t *testing.T) {
	p, err := Encode("hello")
	require.NoError(t, err)
	assert.Equal(t, Payload{Kind: KindRaw, Data: "hello"}, p)

	s, err := Decode[string](p)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestEncode_StructRoundTrip(t *testing.T) {
	in := node{Name: "a", Next: &node{Name: "b"}}
	p, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, KindEncoded, p.Kind)

	out, err := Decode[node](p)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncode_Cycle(t *testing.T) {
	a := &node{Name: "a"}
	a.Next = a
	_, err := Encode(a)
	require.Error(t, err)
}

func TestDecode_Mismatch(t *testing.T) {
	p, err := Encode([]int{1, 2, 3})
	require.NoError(t, err)

	_, err = Decode[map[string]int](p)
	require.Error(t, err)

	_, err = Decode[int](Raw("hello"))
	require.Error(t, err)
}

func TestDecode_RawNumber(t *testing.T) {
	n, err := Decode[int](Raw("42"))
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestDecode_StringTargetIsVerbatim(t *testing.T) {
	p, err := Encode([]int{1, 2})
	require.NoError(t, err)
	s, err := Decode[string](p)
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", s)

	p, err = Encode(map[string]int{"a": 1})
	require.NoError(t, err)
	s, err = Decode[string](p)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, s)
}

func TestDecode_InterfaceTarget(t *testing.T) {
	v, err := Decode[any](Raw("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	p, err := Encode([]int{1, 2})
	require.NoError(t, err)
	v, err = Decode[any](p)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2)}, v)
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode[string](Payload{Kind: 9, Data: "x"})
	require.Error(t, err)
	assert.False(t, Kind(9).Valid())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
