// Package completion keeps the daily completion state shared by every view
// that shows it, and applies optimistic changes to it.
package completion

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukerupert/daybreak/internal/cache"
	"github.com/dukerupert/daybreak/internal/flight"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/source"
)

// Scope identifies one completion record.
type Scope struct {
	UserID  int64
	GroupID int64
	Date    model.Date
}

func (s Scope) key() string {
	return cache.Key("completion",
		strconv.FormatInt(s.UserID, 10),
		strconv.FormatInt(s.GroupID, 10),
		s.Date.String())
}

// Default is the record assumed when nothing exists remotely.
func (s Scope) Default() model.CompletionRecord {
	return model.CompletionRecord{UserID: s.UserID, GroupID: s.GroupID, Date: s.Date}
}

func (s Scope) String() string {
	return fmt.Sprintf("user=%d group=%d date=%s", s.UserID, s.GroupID, s.Date)
}

// Listener is called with the scope and the record just written.
type Listener func(Scope, model.CompletionRecord)

type listener struct {
	match func(Scope) bool
	fn    Listener
}

// Store is the process-wide completion cache. Create one at startup and
// hand it to every view-model that needs completion state.
type Store struct {
	cache  *cache.Cache[model.CompletionRecord]
	source source.Source
	logger *slog.Logger
	window time.Duration

	flight    flight.Group[model.CompletionRecord]
	listeners subscribers[listener]
}

// NewStore creates a store reading from src with the short freshness window.
func NewStore(src source.Source, logger *slog.Logger) *Store {
	return NewStoreWithClock(src, logger, time.Now)
}

// NewStoreWithClock is NewStore with an explicit clock.
func NewStoreWithClock(src source.Source, logger *slog.Logger, now func() time.Time) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cache:  cache.NewWithClock[model.CompletionRecord](now),
		source: src,
		logger: logger,
		window: cache.ShortWindow,
	}
}

// Today is the current calendar day according to the store's clock.
func (s *Store) Today() model.Date {
	return model.DateOf(s.cache.Now())
}

// Read returns the cached record for scope without any I/O.
func (s *Store) Read(scope Scope) (cache.Entry[model.CompletionRecord], bool) {
	return s.cache.Get(scope.key())
}

// Current returns the cached record for scope, or the default.
func (s *Store) Current(scope Scope) model.CompletionRecord {
	if e, ok := s.cache.Get(scope.key()); ok {
		return e.Data
	}
	return scope.Default()
}

// Write stores rec for scope and notifies every matching listener, in
// registration order, before returning.
func (s *Store) Write(scope Scope, rec model.CompletionRecord) {
	rec.UserID, rec.GroupID, rec.Date = scope.UserID, scope.GroupID, scope.Date
	s.cache.Put(scope.key(), rec)

	for _, e := range s.listeners.snapshot() {
		if e.fn.match(scope) {
			e.fn.fn(scope, rec)
		}
	}
}

// Subscribe registers fn for writes to exactly scope.
func (s *Store) Subscribe(scope Scope, fn Listener) *Subscription {
	return s.subscribe(func(o Scope) bool { return o == scope }, fn)
}

// SubscribeGroup registers fn for writes to any member's record in the
// group on date.
func (s *Store) SubscribeGroup(groupID int64, date model.Date, fn Listener) *Subscription {
	return s.subscribe(func(o Scope) bool { return o.GroupID == groupID && o.Date == date }, fn)
}

func (s *Store) subscribe(match func(Scope) bool, fn Listener) *Subscription {
	e := s.listeners.add(listener{match: match, fn: fn})
	return newSubscription(func() { s.listeners.remove(e) })
}

// Listeners returns the number of registered listeners.
func (s *Store) Listeners() int {
	return s.listeners.len()
}

// Load returns the record for scope. A fresh cached record is returned
// directly; a stale one is returned while a refresh runs in the background;
// otherwise the record is fetched. Future dates have no state and resolve to
// the default without touching the cache or the source.
func (s *Store) Load(ctx context.Context, scope Scope) (model.CompletionRecord, error) {
	if scope.Date.After(s.Today()) {
		return scope.Default(), nil
	}

	if e, ok := s.cache.Get(scope.key()); ok {
		if s.cache.Stale(e, s.window) {
			go func() {
				if _, err := s.Fetch(context.WithoutCancel(ctx), scope); err != nil {
					s.logger.Warn("revalidate completion", "scope", scope.String(), "error", err)
				}
			}()
		}
		return e.Data, nil
	}
	return s.Fetch(ctx, scope)
}

// Fetch reads the authoritative record for scope, writes it and returns it.
// Concurrent fetches of the same scope share one request.
func (s *Store) Fetch(ctx context.Context, scope Scope) (model.CompletionRecord, error) {
	return s.flight.Do(ctx, scope.key(), func(ctx context.Context) (model.CompletionRecord, error) {
		rec, err := s.source.GetCompletion(ctx, scope.UserID, scope.GroupID, scope.Date)
		if err != nil {
			return model.CompletionRecord{}, fmt.Errorf("fetch completion: %w", err)
		}
		out := scope.Default()
		if rec != nil {
			out = *rec
		}
		s.Write(scope, out)
		return out, nil
	})
}

// Prime writes records fetched in bulk (for example a whole group's rows
// for a day) so single-record readers see them without another request.
func (s *Store) Prime(recs []model.CompletionRecord) {
	for _, rec := range recs {
		s.Write(Scope{UserID: rec.UserID, GroupID: rec.GroupID, Date: rec.Date}, rec)
	}
}
