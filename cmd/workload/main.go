package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/leonardcser/litecache/internal/cache"
	"github.com/leonardcser/litecache/internal/logger"
	"github.com/leonardcser/litecache/internal/workload"
)

func main() {
	def := workload.Default()
	var (
		dir        = flag.String("dir", ".", "Directory holding the store file")
		file       = flag.String("file", "cache.db", "Store file name")
		passphrase = flag.String("passphrase", "", "Encrypt the store with this passphrase")
		tasks      = flag.Int("n", def.Tasks, "Number of concurrent tasks")
		limit      = flag.Int("c", 0, "Maximum tasks running at once (0 = all)")
		delay      = flag.Duration("delay", def.Delay, "Delay before each task starts")
		ttl        = flag.Duration("ttl", def.TTL, "Lifetime of each entry")
		shrink     = flag.Int("shrink-every", def.ShrinkEvery, "Shrink from every n-th task (0 = never)")
		purge      = flag.String("purge-at", "250,500", "Comma-separated task numbers that empty expired entries")
		timeout    = flag.Duration("lock-timeout", cache.DefaultLockTimeout, "Bound on waiting for store access")
		verbose    = flag.Bool("v", false, "Log to stderr with debug output")
	)
	flag.Parse()

	if *verbose {
		logger.SetOutput(os.Stderr)
		logger.SetDebug(true)
	} else if err := logger.InitFromEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Close()

	purgeAt, err := parseInts(*purge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -purge-at: %v\n", err)
		os.Exit(2)
	}

	store, err := cache.Open(*dir, *file, cache.Options{Passphrase: *passphrase, LockTimeout: *timeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("=== litecache workload ===\nStore: %s\nTasks: %d\n\n", store.Path(), *tasks)
	rep, err := workload.Run(ctx, store, workload.Config{
		Tasks:       *tasks,
		Concurrency: *limit,
		Delay:       *delay,
		TTL:         *ttl,
		ShrinkEvery: *shrink,
		PurgeAt:     purgeAt,
		Values:      def.Values,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "workload: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(rep)
	fmt.Printf("Size after run: %d bytes (%s)\n", store.SizeInBytes(), rep.Elapsed.Round(time.Millisecond))
	if !rep.OK() {
		os.Exit(1)
	}
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
