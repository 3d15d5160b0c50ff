package cache

import (
	"errors"
	"net"

	"github.com/goccy/go-json"
	platformerrors "github.com/jmgilman/go/errors"

	"github.com/leonardcser/litecache/internal/codec"
	"github.com/leonardcser/litecache/internal/logger"
)

// Serve accepts connections on l and answers requests against c until l is closed.
func Serve(l net.Listener, c Cache) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warnf("cache: accept: %v", err)
			continue
		}
		go handleConn(conn, c)
	}
}

func handleConn(conn net.Conn, c Cache) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		if err := enc.Encode(Handle(c, req)); err != nil {
			logger.Warnf("cache: write response: %v", err)
			return
		}
	}
}

// Handle runs a single request against c.
func Handle(c Cache, req Request) Response {
	var (
		resp Response
		err  error
	)
	switch req.Op {
	case OpAdd:
		resp.OK, err = c.PutContent(req.Key, codec.Payload{Kind: req.Kind, Data: req.Value}, req.TTL)
	case OpGet:
		var p codec.Payload
		p, resp.OK, err = c.GetContent(req.Key)
		resp.Kind, resp.Value = p.Kind, p.Data
	case OpExists:
		resp.OK, err = c.Exists(req.Key)
	case OpIsExpired:
		resp.OK, err = c.IsExpired(req.Key)
	case OpGetExpiration:
		exp, ok, gerr := c.GetExpiration(req.Key)
		resp.OK, err = ok, gerr
		if ok {
			resp.Expiration = &exp
		}
	case OpKeys:
		resp.Keys = c.GetKeys()
		resp.OK = true
	case OpEmptyExpired:
		resp.OK = c.EmptyExpired()
	case OpEmptyAll:
		resp.OK = c.EmptyAll()
	case OpSize:
		resp.Size = c.SizeInBytes()
		resp.OK = true
	case OpShrink:
		resp.OK = c.Shrink()
	default:
		err = invalidArgument("op", "unknown op "+req.Op)
	}
	if err != nil {
		return Response{Code: string(platformerrors.GetCode(err)), Error: err.Error()}
	}
	return resp
}
