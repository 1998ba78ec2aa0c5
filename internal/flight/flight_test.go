package flight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitForWaiters(t *testing.T, g *Group[int], key string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for g.Waiters(key) != n {
		if time.Now().After(deadline) {
			t.Fatalf("waiters = %d, want %d", g.Waiters(key), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDoCoalesces(t *testing.T) {
	var g Group[int]
	var calls int32
	release := make(chan struct{})

	producer := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const n = 5
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := g.Do(context.Background(), "k", producer)
			if err != nil {
				t.Errorf("Do: %v", err)
			}
			results[i] = v
		}(i)
	}
	waitForWaiters(t, &g, "k", n)
	close(release)
	wg.Wait()

	if c := atomic.LoadInt32(&calls); c != 1 {
		t.Errorf("producer calls = %d, want 1", c)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("result[%d] = %d", i, v)
		}
	}
	if w := g.Waiters("k"); w != 0 {
		t.Errorf("waiters after settle = %d", w)
	}
}

func TestDoReleasesKeyAfterFailure(t *testing.T) {
	var g Group[int]
	boom := errors.New("boom")
	if _, err := g.Do(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	v, err := g.Do(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("second Do = %d, %v; want a fresh call", v, err)
	}
}

func TestDoDistinctKeys(t *testing.T) {
	var g Group[int]
	var calls int32
	producer := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}
	g.Do(context.Background(), "a", producer)
	g.Do(context.Background(), "b", producer)
	if c := atomic.LoadInt32(&calls); c != 2 {
		t.Errorf("calls = %d, want 2", c)
	}
}

func TestDoCallerCancelDoesNotCancelProducer(t *testing.T) {
	var g Group[int]
	release := make(chan struct{})
	producerErr := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.Do(ctx, "k", func(pctx context.Context) (int, error) {
			<-release
			producerErr <- pctx.Err()
			return 1, nil
		})
		done <- err
	}()
	waitForWaiters(t, &g, "k", 1)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("caller err = %v, want context.Canceled", err)
	}

	// A second caller joins the still-running producer.
	second := make(chan int, 1)
	go func() {
		v, _ := g.Do(context.Background(), "k", func(context.Context) (int, error) { return 99, nil })
		second <- v
	}()
	waitForWaiters(t, &g, "k", 1)
	close(release)

	if err := <-producerErr; err != nil {
		t.Errorf("producer ctx err = %v, want nil", err)
	}
	if v := <-second; v != 1 {
		t.Errorf("second caller got %d, want shared result 1", v)
	}
}

func TestDoRecoversPanic(t *testing.T) {
	var g Group[int]
	_, err := g.Do(context.Background(), "k", func(context.Context) (int, error) {
		panic("bad")
	})
	if err == nil {
		t.Fatal("expected error from panicking producer")
	}
}
