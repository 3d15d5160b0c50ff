package main

import (
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leonardcser/litecache/internal/cache"
	"github.com/leonardcser/litecache/internal/config"
	"github.com/leonardcser/litecache/internal/logger"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Errorf("config: %v", err)
		panic(err)
	}

	store, err := cache.Open(cfg.Dir, cfg.FileName, cache.Options{
		Passphrase:  cfg.Passphrase,
		LockTimeout: cfg.LockTimeout,
		NoSync:      cfg.NoSync,
	})
	if err != nil {
		logger.Errorf("open store %s: %v", cfg.Path(), err)
		panic(err)
	}
	defer store.Close()

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(cfg.Socket), 0o755)
	_ = os.Remove(cfg.Socket)

	l, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		logger.Errorf("listen %s: %v", cfg.Socket, err)
		panic(err)
	}
	_ = os.Chmod(cfg.Socket, 0o600)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Infof("Shutting down cache daemon")
		_ = l.Close()
	}()

	logger.Infof("Cache daemon serving %s on %s", cfg.Path(), cfg.Socket)
	if err := cache.Serve(l, store); err != nil {
		logger.Errorf("serve: %v", err)
	}
	_ = os.Remove(cfg.Socket)
}
