// Package flight coalesces concurrent fetches of the same key into a single
// call to the remote source.
package flight

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Group runs at most one producer per key at a time. Callers that arrive
// while a producer is running wait for, and share, its result. The key is
// released as soon as the producer settles, successfully or not, so the
// next call after that issues a fresh request.
type Group[T any] struct {
	sf singleflight.Group

	mu      sync.Mutex
	waiters map[string]int
}

// Do returns the result of producer for key, joining an in-flight call when
// one exists. The producer runs detached from ctx: if ctx ends first the
// caller stops waiting, but the producer still settles for everyone else.
func (g *Group[T]) Do(ctx context.Context, key string, producer func(context.Context) (T, error)) (T, error) {
	detached := context.WithoutCancel(ctx)
	ch := g.sf.DoChan(key, func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("flight %s: panic: %v", key, r)
			}
		}()
		return producer(detached)
	})

	g.join(key)
	defer g.leave(key)

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Waiters returns how many callers are currently waiting on key.
func (g *Group[T]) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters[key]
}

func (g *Group[T]) join(key string) {
	g.mu.Lock()
	if g.waiters == nil {
		g.waiters = make(map[string]int)
	}
	g.waiters[key]++
	g.mu.Unlock()
}

func (g *Group[T]) leave(key string) {
	g.mu.Lock()
	g.waiters[key]--
	if g.waiters[key] <= 0 {
		delete(g.waiters, key)
	}
	g.mu.Unlock()
}
