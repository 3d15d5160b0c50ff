package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leonardcser/litecache/internal/codec"
	"github.com/leonardcser/litecache/internal/collection"
	"github.com/leonardcser/litecache/internal/logger"
)

// Store is a persistent TTL cache over a single collection file.
// It is safe for concurrent use by multiple goroutines. Only one Store may
// own a given file; bbolt's file lock makes a second Open fail.
type Store struct {
	col     *collection.Collection
	arb     *arbiter
	now     func() time.Time
	onFault func(op string, err error)
}

type Options struct {
	// Passphrase enables at-rest encryption of stored values.
	Passphrase string
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// LockTimeout bounds the wait for access. Zero means DefaultLockTimeout;
	// a negative value waits indefinitely.
	LockTimeout time.Duration
	// NoSync skips fsync after each write.
	NoSync bool
	// Clock overrides time.Now.
	Clock func() time.Time
	// OnFault is called with every storage fault converted to a sentinel result.
	OnFault func(op string, err error)
}

var _ Cache = (*Store)(nil)

// Open initializes or opens a Store at dir/fileName, creating dir if needed.
func Open(dir, fileName string, opts Options) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, invalidArgument("dir", "directory can not be empty")
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, invalidArgument("fileName", "file name can not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageFault("open", err)
	}
	col, err := collection.Open(filepath.Join(dir, fileName), collection.Options{
		Bucket:     opts.Bucket,
		Passphrase: opts.Passphrase,
		NoSync:     opts.NoSync,
	})
	if err != nil {
		return nil, storageFault("open", err)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Store{col: col, arb: newArbiter(opts.LockTimeout), now: now, onFault: opts.OnFault}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.col.Path() }

// Close waits for in-flight operations and closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.col == nil {
		return nil
	}
	release, err := s.arb.exclusive()
	if err != nil {
		return storageFault("close", err)
	}
	defer release()
	return s.col.Close()
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return invalidArgument("key", "key can not be empty")
	}
	return nil
}

// fault traces a storage fault that is about to be converted to a sentinel.
func (s *Store) fault(op string, err error) {
	logger.Warnf("cache: %s: %v", op, err)
	if s.onFault != nil {
		s.onFault(op, err)
	}
}

// lookup is the shared point read behind the key-scoped operations.
func (s *Store) lookup(op, key string) (collection.Record, bool, error) {
	release, err := s.arb.shared()
	if err != nil {
		return collection.Record{}, false, storageFault(op, err)
	}
	defer release()
	rec, ok, err := s.col.Get(key)
	if err != nil {
		return collection.Record{}, false, storageFault(op, wrapClosed(err))
	}
	return rec, ok, nil
}

// structural runs fn holding exclusive access.
func (s *Store) structural(op string, fn func() error) error {
	release, err := s.arb.exclusive()
	if err != nil {
		return storageFault(op, err)
	}
	defer release()
	return storageFault(op, wrapClosed(fn()))
}

func wrapClosed(err error) error {
	if errors.Is(err, collection.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}

// PutContent upserts payload under key, expiring ttl from now.
func (s *Store) PutContent(key string, p codec.Payload, ttl time.Duration) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	if !p.Kind.Valid() {
		return false, invalidArgument("payload", fmt.Sprintf("unknown payload %s", p.Kind))
	}
	rec := collection.Record{ID: key, Kind: p.Kind, Contents: p.Data, ExpiresAt: expiresAt(s.now(), ttl)}

	release, err := s.arb.shared()
	if err != nil {
		s.fault("add", storageFault("add", err))
		return false, nil
	}
	defer release()
	if err := s.col.Put(rec); err != nil {
		s.fault("add", storageFault("add", wrapClosed(err)))
		return false, nil
	}
	return true, nil
}

// GetContent returns the stored payload for key.
func (s *Store) GetContent(key string) (codec.Payload, bool, error) {
	if err := validKey(key); err != nil {
		return codec.Payload{}, false, err
	}
	rec, ok, err := s.lookup("get", key)
	if err != nil {
		s.fault("get", err)
		return codec.Payload{}, false, nil
	}
	if !ok {
		return codec.Payload{}, false, nil
	}
	return rec.Payload(), true, nil
}

// Exists reports whether key is stored, expired or not.
func (s *Store) Exists(key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	_, ok, err := s.lookup("exists", key)
	if err != nil {
		s.fault("exists", err)
		return false, nil
	}
	return ok, nil
}

// IsExpired reports whether key is past its expiration. A missing key is
// reported as expired, unlike GetKeys which never lists it at all.
func (s *Store) IsExpired(key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	rec, ok, err := s.lookup("is_expired", key)
	if err != nil {
		s.fault("is_expired", err)
		return true, nil
	}
	return !ok || expired(s.now(), rec.ExpiresAt), nil
}

// GetExpiration returns the stored expiration of key in UTC.
func (s *Store) GetExpiration(key string) (time.Time, bool, error) {
	if err := validKey(key); err != nil {
		return time.Time{}, false, err
	}
	rec, ok, err := s.lookup("get_expiration", key)
	if err != nil {
		s.fault("get_expiration", err)
		return time.Time{}, false, nil
	}
	if !ok {
		return time.Time{}, false, nil
	}
	return rec.ExpiresAt, true, nil
}

// GetKeys lists every stored key with its state, evaluated per key as it is read.
func (s *Store) GetKeys() []KeyState {
	var keys []KeyState
	err := s.structural("keys", func() error {
		return s.col.Scan(func(r collection.Record) error {
			keys = append(keys, KeyState{Key: r.ID, State: stateAt(s.now(), r.ExpiresAt)})
			return nil
		})
	})
	if err != nil {
		s.fault("keys", err)
		return []KeyState{}
	}
	if keys == nil {
		keys = []KeyState{}
	}
	return keys
}

// EmptyExpired deletes every entry that expired before the call started.
func (s *Store) EmptyExpired() bool {
	err := s.structural("empty_expired", func() error {
		now := s.now().UTC()
		n, err := s.col.DeleteWhere(func(r collection.Record) bool { return r.ExpiresAt.Before(now) })
		if err == nil {
			logger.Debugf("cache: removed %d expired entries", n)
		}
		return err
	})
	if err != nil {
		s.fault("empty_expired", err)
		return false
	}
	return true
}

// EmptyAll deletes every entry.
func (s *Store) EmptyAll() bool {
	err := s.structural("empty_all", func() error {
		_, err := s.col.DeleteAll()
		return err
	})
	if err != nil {
		s.fault("empty_all", err)
		return false
	}
	return true
}

// SizeInBytes returns the size of the backing file, 0 if it does not exist.
func (s *Store) SizeInBytes() int64 {
	var size int64
	err := s.structural("size", func() error {
		var err error
		size, err = s.col.Size()
		return err
	})
	if err != nil {
		s.fault("size", err)
		return 0
	}
	return size
}

// Shrink compacts the backing file, reclaiming space left by deletes.
func (s *Store) Shrink() bool {
	err := s.structural("shrink", s.col.Compact)
	if err != nil {
		s.fault("shrink", err)
		return false
	}
	return true
}
