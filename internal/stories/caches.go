// Package stories provides the group stories feed for a day and keeps
// posting streaks current.
package stories

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukerupert/daybreak/internal/cache"
	"github.com/dukerupert/daybreak/internal/completion"
	"github.com/dukerupert/daybreak/internal/model"
)

// Caches holds the list caches shared by every feed in the process.
type Caches struct {
	Members     *cache.Loader[[]model.Member]
	Posts       *cache.Loader[[]model.Post]
	Likes       *cache.Loader[[]model.Like]
	Comments    *cache.Loader[map[int64]int]
	Completions *cache.Loader[[]model.CompletionRecord]
}

// NewCaches creates the shared caches. Group completion rows fetched in
// bulk are written through to store so single-record views see them.
func NewCaches(store *completion.Store, logger *slog.Logger) *Caches {
	return NewCachesWithClock(store, logger, time.Now)
}

// NewCachesWithClock is NewCaches with an explicit clock.
func NewCachesWithClock(store *completion.Store, logger *slog.Logger, now func() time.Time) *Caches {
	c := &Caches{
		Members:     cache.NewLoader(cache.NewWithClock[[]model.Member](now), cache.LongWindow, logger),
		Posts:       cache.NewLoader(cache.NewWithClock[[]model.Post](now), cache.LongWindow, logger),
		Likes:       cache.NewLoader(cache.NewWithClock[[]model.Like](now), cache.LongWindow, logger),
		Comments:    cache.NewLoader(cache.NewWithClock[map[int64]int](now), cache.LongWindow, logger),
		Completions: cache.NewLoader(cache.NewWithClock[[]model.CompletionRecord](now), cache.ShortWindow, logger),
	}
	c.Completions.Stored = func(_ string, recs []model.CompletionRecord) {
		store.Prime(recs)
	}
	return c
}

func membersKey(groupID int64) string {
	return cache.Key("members", id(groupID))
}

func postsKey(groupID int64, date model.Date) string {
	return cache.Key("posts", id(groupID), date.String())
}

func likesKey(groupID int64, date model.Date) string {
	return cache.Key("likes", id(groupID), date.String())
}

func commentsKey(groupID int64, date model.Date) string {
	return cache.Key("comment_counts", id(groupID), date.String())
}

func completionsKey(groupID int64, date model.Date) string {
	return cache.Key("group_completions", id(groupID), date.String())
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

// PostPath is the storage path for a new post image.
func PostPath(groupID int64, date model.Date, name string) string {
	return fmt.Sprintf("posts/%d/%s/%s.jpg", groupID, date, name)
}
