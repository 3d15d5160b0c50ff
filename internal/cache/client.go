package cache

import (
	"errors"
	"net"
	"time"

	"github.com/goccy/go-json"
	platformerrors "github.com/jmgilman/go/errors"

	"github.com/leonardcser/litecache/internal/codec"
	"github.com/leonardcser/litecache/internal/logger"
)

// Client implements Cache over the daemon's Unix socket. Transport failures
// are treated like storage faults: traced and turned into sentinel results.
type Client struct {
	socketPath string
	timeout    time.Duration
}

var _ Cache = (*Client)(nil)

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 500 * time.Millisecond}
}

func (c *Client) withConn(fn func(conn net.Conn) error) error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func (c *Client) roundTrip(req Request) (Response, error) {
	var resp Response
	err := c.withConn(func(conn net.Conn) error {
		if err := json.NewEncoder(conn).Encode(&req); err != nil {
			return err
		}
		return json.NewDecoder(conn).Decode(&resp)
	})
	return resp, err
}

// do sends req. A returned error is a rejected argument; ok is false when
// the call failed for any other reason, which has already been traced.
func (c *Client) do(req Request) (resp Response, ok bool, err error) {
	resp, err = c.roundTrip(req)
	if err != nil {
		logger.Warnf("cache: %s: %v", req.Op, storageFault(req.Op, err))
		return Response{}, false, nil
	}
	if resp.Error != "" {
		if resp.Code == string(platformerrors.CodeInvalidInput) {
			return Response{}, false, platformerrors.Wrap(ErrInvalidArgument, platformerrors.CodeInvalidInput, resp.Error)
		}
		logger.Warnf("cache: %s: %v", req.Op, storageFault(req.Op, errors.New(resp.Error)))
		return Response{}, false, nil
	}
	return resp, true, nil
}

func (c *Client) pointBool(op, key string) (bool, bool, error) {
	if err := validKey(key); err != nil {
		return false, false, err
	}
	resp, ok, err := c.do(Request{Op: op, Key: key})
	return resp.OK, ok, err
}

func (c *Client) PutContent(key string, p codec.Payload, ttl time.Duration) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	resp, _, err := c.do(Request{Op: OpAdd, Key: key, Kind: p.Kind, Value: p.Data, TTL: ttl})
	return resp.OK, err
}

func (c *Client) GetContent(key string) (codec.Payload, bool, error) {
	if err := validKey(key); err != nil {
		return codec.Payload{}, false, err
	}
	resp, _, err := c.do(Request{Op: OpGet, Key: key})
	if err != nil || !resp.OK {
		return codec.Payload{}, false, err
	}
	return codec.Payload{Kind: resp.Kind, Data: resp.Value}, true, nil
}

func (c *Client) Exists(key string) (bool, error) {
	found, _, err := c.pointBool(OpExists, key)
	return found, err
}

func (c *Client) IsExpired(key string) (bool, error) {
	expired, ok, err := c.pointBool(OpIsExpired, key)
	if err != nil {
		return false, err
	}
	return expired || !ok, nil
}

func (c *Client) GetExpiration(key string) (time.Time, bool, error) {
	if err := validKey(key); err != nil {
		return time.Time{}, false, err
	}
	resp, _, err := c.do(Request{Op: OpGetExpiration, Key: key})
	if err != nil || !resp.OK || resp.Expiration == nil {
		return time.Time{}, false, err
	}
	return resp.Expiration.UTC(), true, nil
}

func (c *Client) GetKeys() []KeyState {
	resp, _, _ := c.do(Request{Op: OpKeys})
	if resp.Keys == nil {
		return []KeyState{}
	}
	return resp.Keys
}

func (c *Client) EmptyExpired() bool {
	resp, _, _ := c.do(Request{Op: OpEmptyExpired})
	return resp.OK
}

func (c *Client) EmptyAll() bool {
	resp, _, _ := c.do(Request{Op: OpEmptyAll})
	return resp.OK
}

func (c *Client) SizeInBytes() int64 {
	resp, _, _ := c.do(Request{Op: OpSize})
	return resp.Size
}

func (c *Client) Shrink() bool {
	resp, _, _ := c.do(Request{Op: OpShrink})
	return resp.OK
}

// Close is a no-op; each call uses its own connection.
func (c *Client) Close() error { return nil }
