// Package workload drives many concurrent logical tasks against one cache to
// check that concurrent point and structural operations neither corrupt the
// store nor lose writes.
package workload

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leonardcser/litecache/internal/cache"
	"github.com/leonardcser/litecache/internal/logger"
)

// Config shapes a run. Zero fields take the defaults from Default.
type Config struct {
	// Tasks is the number of logical tasks launched.
	Tasks int
	// Concurrency caps tasks running at once; 0 runs them all at once.
	Concurrency int
	// Delay is slept by each task before it starts.
	Delay time.Duration
	// TTL is the lifetime of every entry written.
	TTL time.Duration
	// ShrinkEvery makes every n-th task compact the store; 0 disables it.
	ShrinkEvery int
	// PurgeAt lists task numbers that run EmptyExpired followed by Shrink.
	PurgeAt []int
	// Values is the length of the []int written by each task.
	Values int
}

// Default mirrors the original demo: a thousand tasks that all shrink.
func Default() Config {
	return Config{
		Tasks:       1000,
		Delay:       25 * time.Millisecond,
		TTL:         time.Second,
		ShrinkEvery: 1,
		PurgeAt:     []int{250, 500},
		Values:      100,
	}
}

func (c Config) withDefaults() Config {
	d := Default()
	if c.Tasks <= 0 {
		c.Tasks = d.Tasks
	}
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.Values <= 0 {
		c.Values = d.Values
	}
	return c
}

// Report summarizes a run.
type Report struct {
	Tasks              int
	AddFailures        int64
	Mismatches         int64
	StructuralFailures int64
	KeysAfter          int
	Unreadable         int
	Elapsed            time.Duration
}

// OK reports whether every task read back its own write and the store is
// still fully readable.
func (r Report) OK() bool {
	return r.AddFailures == 0 && r.Mismatches == 0 && r.Unreadable == 0
}

func (r Report) String() string {
	return fmt.Sprintf("tasks=%d add_failures=%d mismatches=%d structural_failures=%d keys_after=%d unreadable=%d elapsed=%s",
		r.Tasks, r.AddFailures, r.Mismatches, r.StructuralFailures, r.KeysAfter, r.Unreadable, r.Elapsed)
}

type counters struct {
	addFailures, mismatches, structural atomic.Int64
}

// Run executes the workload against c and then verifies the store.
// Argument errors from the cache abort the run; everything else is counted.
func Run(ctx context.Context, c cache.Cache, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	start := time.Now()

	want := make([]int, cfg.Values)
	for i := range want {
		want[i] = i + 1
	}

	var cnt counters
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Concurrency > 0 {
		g.SetLimit(cfg.Concurrency)
	}
	for i := 1; i <= cfg.Tasks; i++ {
		g.Go(func() error { return work(gctx, c, cfg, i, want, &cnt) })
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	keys := c.GetKeys()
	unreadable := 0
	for _, ks := range keys {
		if _, err := cache.Get[[]int](c, ks.Key); err != nil {
			logger.Errorf("workload: %s unreadable: %v", ks.Key, err)
			unreadable++
		}
	}

	return Report{
		Tasks:              cfg.Tasks,
		AddFailures:        cnt.addFailures.Load(),
		Mismatches:         cnt.mismatches.Load(),
		StructuralFailures: cnt.structural.Load(),
		KeysAfter:          len(keys),
		Unreadable:         unreadable,
		Elapsed:            time.Since(start),
	}, nil
}

func work(ctx context.Context, c cache.Cache, cfg Config, i int, want []int, cnt *counters) error {
	if cfg.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Delay):
		}
	}
	logger.Debugf("workload: %d executing", i)

	key := fmt.Sprintf("item_%d", i)
	ok, err := cache.Add(c, key, want, cfg.TTL)
	if err != nil {
		return err
	}
	if !ok {
		cnt.addFailures.Add(1)
	} else {
		got, err := cache.Get[[]int](c, key)
		if err != nil || !slices.Equal(got, want) {
			logger.Warnf("workload: %d: read back %d values, err=%v", i, len(got), err)
			cnt.mismatches.Add(1)
		}
	}

	if cfg.ShrinkEvery > 0 && i%cfg.ShrinkEvery == 0 && !c.Shrink() {
		cnt.structural.Add(1)
	}
	if slices.Contains(cfg.PurgeAt, i) {
		if !c.EmptyExpired() {
			cnt.structural.Add(1)
		}
		if !c.Shrink() {
			cnt.structural.Add(1)
		}
	}
	return nil
}
