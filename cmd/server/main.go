package main

import (
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/litecache/internal/cache"
	"github.com/leonardcser/litecache/internal/config"
	"github.com/leonardcser/litecache/internal/logger"
	tools "github.com/leonardcser/litecache/internal/tools"
	web "github.com/leonardcser/litecache/internal/web"
)

const daemonBinary = "litecache-cache"

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting litecache MCP server")

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Errorf("config: %v", err)
		panic(err)
	}

	// Only the daemon opens the store file; this process talks to it over the socket.
	logger.Infof("Attempting to connect to cache daemon at %s", cfg.Socket)
	client, err := connectCache(cfg.Socket)
	if err != nil {
		logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
		if startErr := startCacheDaemon(); startErr != nil {
			logger.Errorf("Failed to start cache daemon: %v", startErr)
		}
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if client, err = connectCache(cfg.Socket); err == nil {
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if client == nil {
			logger.Errorf("Failed to connect to cache daemon after startup attempt: %v", err)
			panic(err)
		}
	}
	logger.Infof("Successfully connected to cache daemon")

	s := server.NewMCPServer(
		"litecache",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	tools.RegisterCacheTools(s, client, cfg.DefaultTTL)
	logger.Infof("Registered cache tools")

	fetcher := web.NewFetcher(client, cfg.DefaultTTL)
	toolFetch := mcp.NewTool("web-fetch",
		mcp.WithDescription(multiline(
			"Fetches content from a specified URL and returns the parsed content",
			"\nFunctionality:",
			"- Takes a fully-formed http(s) URL as input",
			"- Returns the title, description, links and the page text as markdown",
			"\nUsage notes:",
			"- This tool is read-only and does not modify any files",
			"- Results are kept in the shared cache until they expire; cache-purge removes stale ones",
		)),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to fetch content from")),
	)
	s.AddTool(toolFetch, tools.WebFetchHandler(fetcher))
	logger.Infof("Registered web-fetch tool")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

func connectCache(sock string) (*cache.Client, error) {
	// quick probe
	conn, err := net.DialTimeout("unix", sock, 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return cache.NewClient(sock), nil
}

// startCacheDaemon launches the daemon binary found next to this executable,
// on PATH, or in the working directory.
func startCacheDaemon() error {
	var candidates []string
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), daemonBinary))
	}
	if path, err := exec.LookPath(daemonBinary); err == nil {
		candidates = append(candidates, path)
	}
	candidates = append(candidates, "./"+daemonBinary)

	for _, bin := range candidates {
		if _, err := os.Stat(bin); err != nil {
			continue
		}
		cmd := exec.Command(bin)
		cmd.Env = os.Environ()
		return cmd.Start()
	}
	return exec.ErrNotFound
}
