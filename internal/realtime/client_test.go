package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	hub "github.com/dukerupert/daybreak/internal/websocket"
)

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	ch    chan struct{}
}

func newCountingRefresher() *countingRefresher {
	return &countingRefresher{ch: make(chan struct{}, 16)}
}

func (r *countingRefresher) RequestRefresh(ctx context.Context) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.ch <- struct{}{}
	return nil
}

func (r *countingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForClients(t *testing.T, h *hub.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d clients, have %d", n, h.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://daybreak.example.com/", "wss://daybreak.example.com/ws"},
	}
	for _, tt := range tests {
		if got := URL(tt.in); got != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRelevant(t *testing.T) {
	l := NewListener(Config{GroupID: 7}, newCountingRefresher(), discardLogger())
	tests := []struct {
		name string
		msg  hub.Message
		want bool
	}{
		{"same group", hub.GroupMessage("post", "created", 1, 7, "2024-01-02"), true},
		{"other group", hub.GroupMessage("post", "created", 1, 8, "2024-01-02"), false},
		{"no group", hub.NewMessage("devotional", "published", 0, nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.relevant(tt.msg); got != tt.want {
				t.Errorf("relevant = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListenerRefreshesOnGroupChange(t *testing.T) {
	h := hub.NewHub(discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.HandleWebSocket(h, nil, discardLogger()))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	r := newCountingRefresher()
	l := NewListener(Config{BaseURL: ts.URL, GroupID: 7, ReconnectDelay: 50 * time.Millisecond}, r, discardLogger())
	seen := make(chan hub.Message, 16)
	l.OnMessage = func(m hub.Message) { seen <- m }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	waitForClients(t, h, 1)

	// Filtered out by the server for this client.
	h.Broadcast(hub.GroupMessage("completion", "updated", 1, 8, "2024-01-02"))
	h.Broadcast(hub.GroupMessage("completion", "updated", 2, 7, "2024-01-02"))

	select {
	case m := <-seen:
		if m.GroupID != 7 || m.ID != 2 {
			t.Errorf("first message = %+v, want group 7 id 2", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	select {
	case <-r.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for refresh")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if n := r.count(); n != 1 {
		t.Errorf("refresh count = %d, want 1", n)
	}
}

func TestListenerRetriesUntilCancelled(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	r := newCountingRefresher()
	l := NewListener(Config{BaseURL: addr, ReconnectDelay: 10 * time.Millisecond}, r, discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := l.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run returned %v, want context.DeadlineExceeded", err)
	}
	if n := r.count(); n != 0 {
		t.Errorf("refresh count = %d, want 0", n)
	}
}
