package collection

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/leonardcser/litecache/internal/codec"
)

// ErrCorrupt is returned when a stored value cannot be parsed as a record.
var ErrCorrupt = errors.New("collection: corrupt record")

// Record is one persisted cache entry.
type Record struct {
	ID        string
	Kind      codec.Kind
	Contents  string
	ExpiresAt time.Time
}

// Payload returns the record contents as a codec payload.
func (r Record) Payload() codec.Payload {
	return codec.Payload{Kind: r.Kind, Data: r.Contents}
}

// Layout: kind (1 byte) || expiresAt UnixNano (8 bytes big endian) || contents
const headerSize = 9

func encodeRecord(r Record) []byte {
	buf := make([]byte, headerSize+len(r.Contents))
	buf[0] = byte(r.Kind)
	binary.BigEndian.PutUint64(buf[1:headerSize], uint64(r.ExpiresAt.UnixNano()))
	copy(buf[headerSize:], r.Contents)
	return buf
}

func decodeRecord(id string, v []byte) (Record, error) {
	if len(v) < headerSize {
		return Record{}, fmt.Errorf("%w: %q is %d bytes", ErrCorrupt, id, len(v))
	}
	kind := codec.Kind(v[0])
	if !kind.Valid() {
		return Record{}, fmt.Errorf("%w: %q has %s", ErrCorrupt, id, kind)
	}
	ns := int64(binary.BigEndian.Uint64(v[1:headerSize]))
	return Record{
		ID:        id,
		Kind:      kind,
		Contents:  string(v[headerSize:]),
		ExpiresAt: time.Unix(0, ns).UTC(),
	}, nil
}
