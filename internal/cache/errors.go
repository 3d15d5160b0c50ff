package cache

import (
	"errors"
	"fmt"

	platformerrors "github.com/jmgilman/go/errors"
)

var (
	// ErrInvalidArgument marks caller bugs: empty keys, nil data, bad paths.
	ErrInvalidArgument = errors.New("cache: invalid argument")
	// ErrEncoding is returned when a value cannot be encoded for storage.
	ErrEncoding = errors.New("cache: encoding failed")
	// ErrDecoding is returned when stored contents cannot be decoded into the requested type.
	ErrDecoding = errors.New("cache: decoding failed")
	// ErrStorageFault wraps every I/O-level failure of the backing store.
	ErrStorageFault = errors.New("cache: storage fault")
	// ErrArbitrationTimeout is a storage fault raised when access could not be acquired in time.
	ErrArbitrationTimeout = errors.New("cache: arbitration timeout")
	// ErrClosed is a storage fault raised by operations on a closed cache.
	ErrClosed = errors.New("cache: closed")
)

func invalidArgument(name, message string) error {
	return platformerrors.WrapWithContext(ErrInvalidArgument, platformerrors.CodeInvalidInput, message,
		map[string]interface{}{"argument": name})
}

func encodingError(err error) error {
	return platformerrors.Wrap(fmt.Errorf("%w: %w", ErrEncoding, err), platformerrors.CodeInvalidInput, "encode value")
}

func decodingError(key string, err error) error {
	return platformerrors.WrapWithContext(fmt.Errorf("%w: %w", ErrDecoding, err), platformerrors.CodeInternal,
		"decode value", map[string]interface{}{"key": key})
}

func storageFault(op string, err error) error {
	if err == nil {
		return nil
	}
	code := platformerrors.CodeDatabase
	if errors.Is(err, ErrArbitrationTimeout) {
		code = platformerrors.CodeTimeout
	}
	return platformerrors.Wrap(fmt.Errorf("%w: %w", ErrStorageFault, err), code, op)
}

// IsStorageFault reports whether err is a converted storage-level failure.
func IsStorageFault(err error) bool { return errors.Is(err, ErrStorageFault) }
