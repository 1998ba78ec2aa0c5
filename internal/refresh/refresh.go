// Package refresh lets one pull-to-refresh gesture re-fetch every data view
// that is currently open.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// Func re-fetches whatever the registering view shows.
type Func func(ctx context.Context) error

// Registration is the handle for one registered Func.
type Registration struct {
	name string
	fn   Func
	b    *Broadcast
	once sync.Once
}

// Unregister removes the registration; calling it again is a no-op.
func (r *Registration) Unregister() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		r.b.mu.Lock()
		delete(r.b.regs, r)
		r.b.mu.Unlock()
	})
}

// Broadcast is the registry of refresh functions.
type Broadcast struct {
	mu     sync.RWMutex
	regs   map[*Registration]struct{}
	logger *slog.Logger
}

// New creates a broadcast with no registered refreshers.
func New(logger *slog.Logger) *Broadcast {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcast{
		regs:   make(map[*Registration]struct{}),
		logger: logger,
	}
}

// Register adds fn under a name used in logs.
func (b *Broadcast) Register(name string, fn Func) *Registration {
	r := &Registration{name: name, fn: fn, b: b}
	b.mu.Lock()
	b.regs[r] = struct{}{}
	b.mu.Unlock()
	return r
}

// Count returns the number of live registrations.
func (b *Broadcast) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.regs)
}

// RequestRefresh runs every registered Func concurrently and returns once
// all of them have returned. One failing Func neither cancels nor delays
// the others; all failures are combined into the returned error.
func (b *Broadcast) RequestRefresh(ctx context.Context) error {
	b.mu.RLock()
	regs := make([]*Registration, 0, len(b.regs))
	for r := range b.regs {
		regs = append(regs, r)
	}
	b.mu.RUnlock()

	start := time.Now()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, r := range regs {
		wg.Add(1)
		go func(r *Registration) {
			defer wg.Done()
			err := run(ctx, r)
			if err == nil {
				return
			}
			b.logger.Warn("refresh failed", "name", r.name, "error", err)
			mu.Lock()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.name, err))
			mu.Unlock()
		}(r)
	}
	wg.Wait()

	b.logger.Debug("refresh complete", "count", len(regs), "failed", len(multierr.Errors(errs)), "duration", time.Since(start))
	return errs
}

func run(ctx context.Context, r *Registration) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.fn(ctx)
}
