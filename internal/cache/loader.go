package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/daybreak/internal/flight"
)

// Loader applies the read policy shared by the data hooks: a fresh hit is
// returned with no I/O, a stale hit is returned immediately while a
// background refresh runs, and a miss waits for a coalesced fetch.
type Loader[T any] struct {
	Cache  *Cache[T]
	Window time.Duration
	Logger *slog.Logger

	// Stored, if set, is called after every successful fetch is written.
	Stored func(key string, data T)

	flight flight.Group[T]
}

// NewLoader creates a loader over c with the given staleness window.
func NewLoader[T any](c *Cache[T], window time.Duration, logger *slog.Logger) *Loader[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader[T]{Cache: c, Window: window, Logger: logger}
}

// Load returns the value for key according to the read policy. The boolean
// reports whether the value came from the cache.
func (l *Loader[T]) Load(ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, bool, error) {
	if e, ok := l.Cache.Get(key); ok {
		if l.Cache.Stale(e, l.Window) {
			go l.revalidate(context.WithoutCancel(ctx), key, fetch)
		}
		return e.Data, true, nil
	}
	v, err := l.Fetch(ctx, key, fetch)
	return v, false, err
}

// Fetch bypasses the staleness check and stores a fresh value for key.
func (l *Loader[T]) Fetch(ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	return l.flight.Do(ctx, key, func(ctx context.Context) (T, error) {
		v, err := fetch(ctx)
		if err != nil {
			return v, err
		}
		l.Cache.Put(key, v)
		if l.Stored != nil {
			l.Stored(key, v)
		}
		return v, nil
	})
}

func (l *Loader[T]) revalidate(ctx context.Context, key string, fetch func(context.Context) (T, error)) {
	if _, err := l.Fetch(ctx, key, fetch); err != nil {
		l.Logger.Warn("background refresh failed", "key", key, "error", err)
	}
}
