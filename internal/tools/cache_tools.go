package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/litecache/internal/cache"
)

// Handler is the shape of every MCP tool handler in this package.
type Handler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// RegisterCacheTools adds the cache-* tools backed by c to s.
func RegisterCacheTools(s *server.MCPServer, c cache.Cache, defaultTTL time.Duration) {
	s.AddTool(mcp.NewTool("cache-get",
		mcp.WithDescription("Returns the value stored under a cache key, with its expiration"),
		mcp.WithString("key", mcp.Required(), mcp.Description("The cache key")),
	), CacheGetHandler(c))

	s.AddTool(mcp.NewTool("cache-set",
		mcp.WithDescription("Stores a text value under a cache key"),
		mcp.WithString("key", mcp.Required(), mcp.Description("The cache key")),
		mcp.WithString("value", mcp.Required(), mcp.Description("The text to store")),
		mcp.WithNumber("ttl_seconds", mcp.Description("Lifetime in seconds; defaults to the server TTL")),
	), CacheSetHandler(c, defaultTTL))

	s.AddTool(mcp.NewTool("cache-keys",
		mcp.WithDescription("Lists every cache key with its state (active or expired)"),
	), CacheKeysHandler(c))

	s.AddTool(mcp.NewTool("cache-purge",
		mcp.WithDescription("Deletes every expired cache entry"),
	), boolHandler("Expired entries removed.", c.EmptyExpired))

	s.AddTool(mcp.NewTool("cache-clear",
		mcp.WithDescription("Deletes every cache entry"),
	), boolHandler("Cache cleared.", c.EmptyAll))

	s.AddTool(mcp.NewTool("cache-shrink",
		mcp.WithDescription("Compacts the cache file to reclaim space freed by deletes"),
	), CacheShrinkHandler(c))

	s.AddTool(mcp.NewTool("cache-stats",
		mcp.WithDescription("Reports the cache file size and entry counts"),
	), CacheStatsHandler(c))
}

// CacheGetHandler returns the handler for "cache-get".
func CacheGetHandler(c cache.Cache) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, ok, err := c.GetContent(key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !ok {
			return mcp.NewToolResultText("No entry."), nil
		}
		var sb strings.Builder
		if exp, found, _ := c.GetExpiration(key); found {
			state := "active"
			if expired, _ := c.IsExpired(key); expired {
				state = "expired"
			}
			fmt.Fprintf(&sb, "expires: %s (%s)\n", exp.Format(time.RFC3339), state)
		}
		fmt.Fprintf(&sb, "kind: %s\n\n%s", p.Kind, p.Data)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// CacheSetHandler returns the handler for "cache-set".
func CacheSetHandler(c cache.Cache, defaultTTL time.Duration) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ttl := defaultTTL
		if secs := req.GetFloat("ttl_seconds", 0); secs > 0 {
			ttl = time.Duration(secs * float64(time.Second))
		}
		ok, err := cache.Add(c, key, value, ttl)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !ok {
			return mcp.NewToolResultError("cache write failed"), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Stored %q for %s.", key, ttl)), nil
	}
}

// CacheKeysHandler returns the handler for "cache-keys".
func CacheKeysHandler(c cache.Cache) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(formatKeys(c.GetKeys())), nil
	}
}

// CacheShrinkHandler returns the handler for "cache-shrink".
func CacheShrinkHandler(c cache.Cache) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		before := c.SizeInBytes()
		if !c.Shrink() {
			return mcp.NewToolResultError("shrink failed"), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Shrunk from %d to %d bytes.", before, c.SizeInBytes())), nil
	}
}

// CacheStatsHandler returns the handler for "cache-stats".
func CacheStatsHandler(c cache.Cache) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var active, expired int
		for _, ks := range c.GetKeys() {
			if ks.State == cache.StateActive {
				active++
			} else {
				expired++
			}
		}
		return mcp.NewToolResultText(fmt.Sprintf("size: %d bytes\nactive: %d\nexpired: %d", c.SizeInBytes(), active, expired)), nil
	}
}

func boolHandler(success string, fn func() bool) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !fn() {
			return mcp.NewToolResultError("operation failed"), nil
		}
		return mcp.NewToolResultText(success), nil
	}
}

// formatKeys renders one "key  state" line per entry, sorted by key.
func formatKeys(keys []cache.KeyState) string {
	if len(keys) == 0 {
		return "No entries."
	}
	sorted := append([]cache.KeyState(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	var sb strings.Builder
	for i, ks := range sorted {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s  %s", ks.Key, ks.State)
	}
	return sb.String()
}
