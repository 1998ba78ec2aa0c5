// Package devotional provides the daily devotional view-model and the
// lookup of devotional content by day.
package devotional

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jellydator/ttlcache/v3"

	"github.com/dukerupert/daybreak/internal/flight"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/source"
)

// ContentKeyPrefix namespaces persisted content blobs.
const ContentKeyPrefix = "devotional_content:"

const memoryCapacity = 400

// Persistence is a local key/value store that survives restarts.
type Persistence interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Content looks devotional content up by day. A day's content never
// changes, so once found it is kept without expiry: in memory (bounded),
// then in local persistence, then fetched from the source.
type Content struct {
	memory  *ttlcache.Cache[model.Date, model.DevotionalContent]
	persist Persistence
	source  source.Source
	flight  flight.Group[*model.DevotionalContent]
	logger  *slog.Logger
}

// NewContent creates a lookup over src. persist may be nil.
func NewContent(src source.Source, persist Persistence, logger *slog.Logger) *Content {
	if logger == nil {
		logger = slog.Default()
	}
	return &Content{
		memory: ttlcache.New[model.Date, model.DevotionalContent](
			ttlcache.WithTTL[model.Date, model.DevotionalContent](ttlcache.NoTTL),
			ttlcache.WithCapacity[model.Date, model.DevotionalContent](memoryCapacity),
		),
		persist: persist,
		source:  src,
		logger:  logger,
	}
}

// Cached returns content already held in memory.
func (c *Content) Cached(date model.Date) (*model.DevotionalContent, bool) {
	item := c.memory.Get(date)
	if item == nil {
		return nil, false
	}
	v := item.Value()
	return &v, true
}

// Get returns the content for date, or nil when none is published.
func (c *Content) Get(ctx context.Context, date model.Date) (*model.DevotionalContent, error) {
	if v, ok := c.Cached(date); ok {
		return v, nil
	}
	if v := c.loadLocal(date); v != nil {
		c.memory.Set(date, *v, ttlcache.DefaultTTL)
		return v, nil
	}

	return c.flight.Do(ctx, date.String(), func(ctx context.Context) (*model.DevotionalContent, error) {
		v, err := c.source.GetDevotionalContent(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("fetch devotional content: %w", err)
		}
		if v == nil {
			// Not published yet; ask again next time.
			return nil, nil
		}
		c.memory.Set(date, *v, ttlcache.DefaultTTL)
		c.saveLocal(*v)
		return v, nil
	})
}

func (c *Content) loadLocal(date model.Date) *model.DevotionalContent {
	if c.persist == nil {
		return nil
	}
	raw, ok, err := c.persist.Get(ContentKeyPrefix + date.String())
	if err != nil {
		c.logger.Warn("read persisted content", "date", date, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var v model.DevotionalContent
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		c.logger.Warn("decode persisted content", "date", date, "error", err)
		return nil
	}
	return &v
}

func (c *Content) saveLocal(v model.DevotionalContent) {
	if c.persist == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("encode content", "date", v.Date, "error", err)
		return
	}
	if err := c.persist.Set(ContentKeyPrefix+v.Date.String(), string(raw)); err != nil {
		c.logger.Warn("persist content", "date", v.Date, "error", err)
	}
}
