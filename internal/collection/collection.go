// Package collection is a persisted record store keyed by unique string ids,
// backed by a single bbolt file.
//
// Get, Put, Scan, DeleteWhere, DeleteAll and Len may be called concurrently:
// bbolt serializes writers and gives readers a consistent snapshot. Compact and
// Close replace or release the underlying handle and must not run alongside
// any other method; callers arbitrate that themselves.
package collection

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrClosed is returned by operations on a closed collection.
var ErrClosed = errors.New("collection: closed")

// compactTxSize bounds the size of each copy transaction during Compact.
const compactTxSize = 64 << 20

// Options configures a Collection.
type Options struct {
	// Bucket is the name of the Bolt bucket holding records.
	Bucket string
	// Passphrase enables at-rest encryption of record values when non-empty.
	Passphrase string
	// Timeout bounds the wait for the file lock at open.
	Timeout time.Duration
	// NoSync skips fsync after each commit.
	NoSync bool
}

// Collection is a persisted set of records.
type Collection struct {
	path   string
	bucket []byte
	opts   Options
	db     *bolt.DB
	sealer *sealer
	closed bool
}

// Open opens or creates the collection file at path.
func Open(path string, opts Options) (*Collection, error) {
	bucket := []byte("entries")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 1 * time.Second
	}
	c := &Collection{path: path, bucket: bucket, opts: opts}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collection) boltOptions() *bolt.Options {
	return &bolt.Options{Timeout: c.opts.Timeout, NoSync: c.opts.NoSync}
}

func (c *Collection) open() error {
	db, err := bolt.Open(c.path, 0o600, c.boltOptions())
	if err != nil {
		return fmt.Errorf("open %s: %w", c.path, err)
	}
	var s *sealer
	if err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(c.bucket)
		if err != nil {
			return err
		}
		s, err = setupSealer(tx, b, c.opts.Passphrase, c.sealer)
		return err
	}); err != nil {
		_ = db.Close()
		return err
	}
	c.db = db
	c.sealer = s
	return nil
}

// Path returns the backing file path.
func (c *Collection) Path() string { return c.path }

// Close releases the underlying database.
func (c *Collection) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Get returns the record stored under id.
func (c *Collection) Get(id string) (Record, bool, error) {
	if c.db == nil {
		return Record{}, false, ErrClosed
	}
	var (
		rec   Record
		found bool
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(c.bucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		r, err := c.decode(id, v)
		if err != nil {
			return err
		}
		rec, found = r, true
		return nil
	})
	return rec, found, err
}

// Put inserts r or replaces the record with the same id.
func (c *Collection) Put(r Record) error {
	if c.db == nil {
		return ErrClosed
	}
	v, err := c.sealer.seal(encodeRecord(r))
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(c.bucket).Put([]byte(r.ID), v)
	})
}

// Scan calls fn for every record in key order. Returning an error from fn
// stops the scan.
func (c *Collection) Scan(fn func(Record) error) error {
	if c.db == nil {
		return ErrClosed
	}
	return c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(c.bucket).ForEach(func(k, v []byte) error {
			r, err := c.decode(string(k), v)
			if err != nil {
				return err
			}
			return fn(r)
		})
	})
}

// All returns every record.
func (c *Collection) All() ([]Record, error) {
	var out []Record
	err := c.Scan(func(r Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// Len returns the number of records.
func (c *Collection) Len() (int, error) {
	if c.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(c.bucket).Stats().KeyN
		return nil
	})
	return n, err
}

// DeleteWhere removes every record matching match in one transaction and
// returns how many were removed.
func (c *Collection) DeleteWhere(match func(Record) bool) (int, error) {
	if c.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		var doomed [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			r, err := c.decode(string(k), v)
			if err != nil {
				return err
			}
			if match(r) {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(doomed)
		return nil
	})
	return n, err
}

// DeleteAll removes every record and returns how many were removed.
func (c *Collection) DeleteAll() (int, error) {
	if c.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := c.db.Update(func(tx *bolt.Tx) error {
		n = tx.Bucket(c.bucket).Stats().KeyN
		if err := tx.DeleteBucket(c.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(c.bucket)
		return err
	})
	return n, err
}

// Size returns the size of the backing file, or 0 if it does not exist.
func (c *Collection) Size() (int64, error) {
	fi, err := os.Stat(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Compact rewrites the backing file to reclaim pages freed by deletes.
// Records are copied into a sibling file which then replaces the original;
// a failure before the rename leaves the original untouched, so a failed
// Compact can simply be retried. If an earlier Compact could not reopen the
// file, Compact reopens it before compacting.
func (c *Collection) Compact() error {
	if c.closed {
		return ErrClosed
	}
	if c.db == nil {
		if err := c.open(); err != nil {
			return fmt.Errorf("compact: reopen: %w", err)
		}
	}
	tmp := c.path + ".compact"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("compact: %w", err)
	}
	dst, err := bolt.Open(tmp, 0o600, c.boltOptions())
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	if err := bolt.Compact(dst, c.db, compactTxSize); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("compact: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("compact: %w", err)
	}

	closeErr := c.db.Close()
	c.db = nil
	renameErr := os.Rename(tmp, c.path)
	if renameErr != nil {
		_ = os.Remove(tmp)
	}
	if err := c.open(); err != nil {
		return fmt.Errorf("compact: reopen: %w", err)
	}
	if err := errors.Join(closeErr, renameErr); err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	return nil
}

func (c *Collection) decode(id string, v []byte) (Record, error) {
	plain, err := c.sealer.open(v)
	if err != nil {
		return Record{}, fmt.Errorf("%q: %w", id, err)
	}
	return decodeRecord(id, plain)
}
