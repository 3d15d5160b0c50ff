package collection

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/litecache/internal/codec"
)

func openTemp(t *testing.T, opts Options) *Collection {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "c.bbolt"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func record(id string, exp time.Time) Record {
	return Record{ID: id, Kind: codec.KindRaw, Contents: "v-" + id, ExpiresAt: exp.UTC()}
}

func TestCollection_PutGet(t *testing.T) {
	c := openTemp(t, Options{NoSync: true})
	exp := time.Date(2030, 1, 2, 3, 4, 5, 6, time.UTC)

	require.NoError(t, c.Put(record("a", exp)))
	got, ok, err := c.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record("a", exp), got)
	assert.Equal(t, time.UTC, got.ExpiresAt.Location())

	_, ok, err = c.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCollection_PutReplaces(t *testing.T) {
	c := openTemp(t, Options{NoSync: true})
	exp := time.Now().Add(time.Hour)

	require.NoError(t, c.Put(Record{ID: "k", Kind: codec.KindRaw, Contents: "one", ExpiresAt: exp}))
	require.NoError(t, c.Put(Record{ID: "k", Kind: codec.KindEncoded, Contents: `"two"`, ExpiresAt: exp}))

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, codec.KindEncoded, got.Kind)
	assert.Equal(t, `"two"`, got.Contents)
}

func TestCollection_DeleteWhereAndAll(t *testing.T) {
	c := openTemp(t, Options{NoSync: true})
	now := time.Now()
	for i := 0; i < 10; i++ {
		exp := now.Add(time.Hour)
		if i%2 == 0 {
			exp = now.Add(-time.Hour)
		}
		require.NoError(t, c.Put(record(fmt.Sprintf("k%d", i), exp)))
	}

	n, err := c.DeleteWhere(func(r Record) bool { return r.ExpiresAt.Before(now) })
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	all, err := c.All()
	require.NoError(t, err)
	require.Len(t, all, 5)
	for _, r := range all {
		assert.True(t, r.ExpiresAt.After(now), r.ID)
	}

	n, err = c.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = c.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollection_CompactReclaims(t *testing.T) {
	c := openTemp(t, Options{NoSync: true})
	big := strings.Repeat("x", 4096)
	for i := 0; i < 500; i++ {
		require.NoError(t, c.Put(Record{ID: fmt.Sprintf("k%03d", i), Kind: codec.KindRaw, Contents: big, ExpiresAt: time.Now()}))
	}
	require.NoError(t, c.Put(record("keep", time.Now().Add(time.Hour))))
	_, err := c.DeleteWhere(func(r Record) bool { return r.ID != "keep" })
	require.NoError(t, err)

	before, err := c.Size()
	require.NoError(t, err)
	require.NoError(t, c.Compact())
	after, err := c.Size()
	require.NoError(t, err)
	assert.Less(t, after, before)

	got, ok, err := c.Get("keep")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v-keep", got.Contents)

	// compaction is repeatable from a clean state
	require.NoError(t, c.Compact())
	_, ok, err = c.Get("keep")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCollection_SizeMissingFile(t *testing.T) {
	c := &Collection{path: filepath.Join(t.TempDir(), "nope.bbolt")}
	n, err := c.Size()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollection_Closed(t *testing.T) {
	c := openTemp(t, Options{NoSync: true})
	require.NoError(t, c.Close())
	_, _, err := c.Get("a")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, c.Put(record("a", time.Now())), ErrClosed)
	require.ErrorIs(t, c.Compact(), ErrClosed)
}

func TestCollection_CompactRecoversLostHandle(t *testing.T) {
	c := openTemp(t, Options{Passphrase: "pw", NoSync: true})
	require.NoError(t, c.Put(record("a", time.Now().Add(time.Hour))))

	// state left behind when a reopen after the rename fails
	require.NoError(t, c.db.Close())
	c.db = nil
	_, _, err := c.Get("a")
	require.ErrorIs(t, err, ErrClosed)

	require.NoError(t, c.Compact())
	got, ok, err := c.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v-a", got.Contents)
}

func TestCollection_Encrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enc.bbolt")
	c, err := Open(path, Options{Passphrase: "s3cret", NoSync: true})
	require.NoError(t, err)
	require.NoError(t, c.Put(record("a", time.Now().Add(time.Hour))))
	require.NoError(t, c.Compact())
	got, ok, err := c.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v-a", got.Contents)
	require.NoError(t, c.Close())

	_, err = Open(path, Options{Passphrase: "wrong", NoSync: true})
	require.ErrorIs(t, err, ErrPassphrase)

	_, err = Open(path, Options{NoSync: true})
	require.ErrorIs(t, err, ErrPassphrase)

	c, err = Open(path, Options{Passphrase: "s3cret", NoSync: true})
	require.NoError(t, err)
	got, ok, err = c.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v-a", got.Contents)
	require.NoError(t, c.Close())
}

func TestCollection_PassphraseOnPlainStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.bbolt")
	c, err := Open(path, Options{NoSync: true})
	require.NoError(t, err)
	require.NoError(t, c.Put(record("a", time.Now())))
	require.NoError(t, c.Close())

	_, err = Open(path, Options{Passphrase: "late", NoSync: true})
	require.ErrorIs(t, err, ErrPassphrase)
}

func TestDecodeRecord_Corrupt(t *testing.T) {
	_, err := decodeRecord("a", []byte{1, 2})
	require.ErrorIs(t, err, ErrCorrupt)

	v := encodeRecord(record("a", time.Now()))
	v[0] = 0
	_, err = decodeRecord("a", v)
	require.ErrorIs(t, err, ErrCorrupt)
}
