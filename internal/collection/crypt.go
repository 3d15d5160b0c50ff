package collection

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrPassphrase is returned when the passphrase does not match the store.
var ErrPassphrase = errors.New("collection: passphrase mismatch")

var (
	metaBucket  = []byte("meta")
	saltKey     = []byte("salt")
	verifierKey = []byte("verifier")
	verifierMsg = []byte("litecache")
)

const saltSize = 16

// sealer encrypts record values. A nil sealer stores plaintext.
type sealer struct {
	aead cipher.AEAD
	salt []byte
}

func deriveSealer(passphrase string, salt []byte) (*sealer, error) {
	key := argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: aead, salt: append([]byte(nil), salt...)}, nil
}

func (s *sealer) seal(plain []byte) ([]byte, error) {
	if s == nil {
		return plain, nil
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *sealer) open(sealed []byte) ([]byte, error) {
	if s == nil {
		return sealed, nil
	}
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed value too short", ErrCorrupt)
	}
	plain, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return plain, nil
}

// setupSealer reads or initializes the meta bucket inside tx. prev is reused
// when its salt matches, so reopening after compaction skips key derivation.
func setupSealer(tx *bolt.Tx, data *bolt.Bucket, passphrase string, prev *sealer) (*sealer, error) {
	meta := tx.Bucket(metaBucket)
	if passphrase == "" {
		if meta != nil && meta.Get(saltKey) != nil {
			return nil, fmt.Errorf("%w: store is encrypted", ErrPassphrase)
		}
		return nil, nil
	}

	if meta == nil || meta.Get(saltKey) == nil {
		if k, _ := data.Cursor().First(); k != nil {
			return nil, fmt.Errorf("%w: store is not encrypted", ErrPassphrase)
		}
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return nil, err
		}
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		s, err := deriveSealer(passphrase, salt)
		if err != nil {
			return nil, err
		}
		verifier, err := s.seal(verifierMsg)
		if err != nil {
			return nil, err
		}
		if err := meta.Put(saltKey, salt); err != nil {
			return nil, err
		}
		if err := meta.Put(verifierKey, verifier); err != nil {
			return nil, err
		}
		return s, nil
	}

	salt := meta.Get(saltKey)
	s := prev
	if s == nil || !bytes.Equal(s.salt, salt) {
		var err error
		if s, err = deriveSealer(passphrase, salt); err != nil {
			return nil, err
		}
	}
	plain, err := s.open(meta.Get(verifierKey))
	if err != nil || !bytes.Equal(plain, verifierMsg) {
		return nil, ErrPassphrase
	}
	return s, nil
}
