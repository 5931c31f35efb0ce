package crawler

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Fleet runs several per-domain dispatchers concurrently with a bound
// on how many domains crawl at once. Domains are independent; one
// domain failing does not stop the others.
type Fleet struct {
	dispatchers []*Dispatcher
	concurrency int
	logger      *slog.Logger

	mu     sync.Mutex
	failed []string
}

// NewFleet creates a Fleet over the given dispatchers. concurrency
// bounds how many domains run at once; values below one mean all at
// once.
func NewFleet(dispatchers []*Dispatcher, concurrency int, logger *slog.Logger) *Fleet {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fleet{
		dispatchers: dispatchers,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run crawls every domain, at most concurrency at a time. Per-domain
// errors are collected and logged rather than propagated; only context
// cancellation ends the fleet early. FailedDomains reports which
// domains did not finish cleanly.
func (f *Fleet) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}

	for _, d := range f.dispatchers {
		d := d
		g.Go(func() error {
			if err := d.Run(ctx); err != nil {
				f.logger.Error("domain crawl failed", "domain", d.Domain(), "error", err)
				f.mu.Lock()
				f.failed = append(f.failed, d.Domain())
				f.mu.Unlock()
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// FailedDomains returns the domains whose crawl returned an error.
func (f *Fleet) FailedDomains() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.failed))
	copy(out, f.failed)
	return out
}
