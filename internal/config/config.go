// Package config reads the binaries' settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	EnvDir         = "LITECACHE_DIR"
	EnvFile        = "LITECACHE_FILE"
	EnvPassphrase  = "LITECACHE_PASSPHRASE"
	EnvSocket      = "LITECACHE_SOCK"
	EnvLockTimeout = "LITECACHE_LOCK_TIMEOUT"
	EnvNoSync      = "LITECACHE_NO_SYNC"
	EnvDefaultTTL  = "LITECACHE_DEFAULT_TTL"
)

// Config holds the settings shared by the daemon and its clients.
type Config struct {
	Dir         string
	FileName    string
	Passphrase  string
	Socket      string
	LockTimeout time.Duration
	NoSync      bool
	DefaultTTL  time.Duration
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	dir := defaultDir()
	return Config{
		Dir:        dir,
		FileName:   "cache.bbolt",
		Socket:     filepath.Join(dir, "cache.sock"),
		DefaultTTL: 15 * time.Minute,
	}
}

// FromEnv overlays the LITECACHE_* variables on Default.
func FromEnv() (Config, error) {
	cfg := Default()
	if v := os.Getenv(EnvDir); v != "" {
		cfg.Dir = v
		cfg.Socket = filepath.Join(v, "cache.sock")
	}
	cfg.FileName = defaultString(os.Getenv(EnvFile), cfg.FileName)
	cfg.Socket = defaultString(os.Getenv(EnvSocket), cfg.Socket)
	cfg.Passphrase = os.Getenv(EnvPassphrase)

	var err error
	if v := os.Getenv(EnvLockTimeout); v != "" {
		if cfg.LockTimeout, err = cast.ToDurationE(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLockTimeout, err)
		}
	}
	if v := os.Getenv(EnvNoSync); v != "" {
		if cfg.NoSync, err = cast.ToBoolE(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvNoSync, err)
		}
	}
	if v := os.Getenv(EnvDefaultTTL); v != "" {
		if cfg.DefaultTTL, err = cast.ToDurationE(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvDefaultTTL, err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the cache cannot open with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("config: directory can not be empty")
	}
	if strings.TrimSpace(c.FileName) == "" {
		return fmt.Errorf("config: file name can not be empty")
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("config: default ttl can not be negative")
	}
	return nil
}

// Path returns the store file path.
func (c Config) Path() string { return filepath.Join(c.Dir, c.FileName) }

func defaultDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "litecache")
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
