// Package realtime listens to the server's change feed and turns relevant
// changes into a global refresh.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	ws "github.com/coder/websocket"

	hub "github.com/dukerupert/daybreak/internal/websocket"
)

const defaultReconnectDelay = 3 * time.Second

// Refresher is satisfied by refresh.Broadcast.
type Refresher interface {
	RequestRefresh(ctx context.Context) error
}

// Config holds listener configuration.
type Config struct {
	// BaseURL is the server's HTTP address; the feed lives at /ws.
	BaseURL string
	Token   string
	// GroupID limits refreshes to changes in one group. Zero watches all.
	GroupID        int64
	ReconnectDelay time.Duration
}

// Listener keeps a websocket open to the server and requests a refresh
// whenever a change concerns the watched group.
type Listener struct {
	cfg       Config
	refresher Refresher
	logger    *slog.Logger

	// OnMessage, if set, is called for every decoded message.
	OnMessage func(hub.Message)
}

// NewListener creates a listener that asks r to refresh on every change it hears.
func NewListener(cfg Config, r Refresher, logger *slog.Logger) *Listener {
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{cfg: cfg, refresher: r, logger: logger}
}

// URL converts an http(s) base address to the feed's ws(s) address.
func URL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// Run connects and reconnects until ctx ends.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn("realtime connection lost", "error", err, "retry_in", l.cfg.ReconnectDelay)

		select {
		case <-time.After(l.cfg.ReconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	opts := &ws.DialOptions{}
	if l.cfg.Token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + l.cfg.Token}}
	}
	addr := URL(l.cfg.BaseURL)
	if l.cfg.GroupID != 0 {
		addr += "?group_id=" + strconv.FormatInt(l.cfg.GroupID, 10)
	}
	conn, _, err := ws.Dial(ctx, addr, opts)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()
	l.logger.Info("realtime connected", "url", addr)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			var ce ws.CloseError
			if errors.As(err, &ce) && ce.Code == ws.StatusNormalClosure {
				return errors.New("server closed connection")
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg hub.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			l.logger.Warn("decode realtime message", "error", err)
			continue
		}
		l.handle(ctx, msg)
	}
}

func (l *Listener) handle(ctx context.Context, msg hub.Message) {
	if l.OnMessage != nil {
		l.OnMessage(msg)
	}
	if !l.relevant(msg) {
		return
	}
	if err := l.refresher.RequestRefresh(ctx); err != nil {
		l.logger.Warn("refresh after change", "type", msg.Type, "error", err)
	}
}

// relevant reports whether msg may change anything the client shows.
// Messages without a group (for example new devotional content) always are.
func (l *Listener) relevant(msg hub.Message) bool {
	if l.cfg.GroupID == 0 || msg.GroupID == 0 {
		return true
	}
	return msg.GroupID == l.cfg.GroupID
}
