package stories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/daybreak/internal/completion"
	"github.com/dukerupert/daybreak/internal/feed"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/source"
)

// Streaks advances posting streaks. A fully completed day counts as a post.
type Streaks struct {
	source source.Source
	logger *slog.Logger

	mu sync.Mutex // serializes read-modify-write of a streak
	wg sync.WaitGroup
}

// NewStreaks creates a streak tracker reading and saving through src.
func NewStreaks(src source.Source, logger *slog.Logger) *Streaks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streaks{source: src, logger: logger}
}

// Advance records a qualifying post by userID on day.
func (s *Streaks) Advance(ctx context.Context, userID int64, day model.Date) (model.Streak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.source.GetStreak(ctx, userID)
	if err != nil {
		return model.Streak{}, fmt.Errorf("get streak: %w", err)
	}
	st := model.Streak{UserID: userID}
	if cur != nil {
		st = *cur
	}
	next := feed.AdvanceStreak(st, day)
	if next == st {
		return st, nil
	}
	if err := s.source.SaveStreak(ctx, next); err != nil {
		return st, fmt.Errorf("save streak: %w", err)
	}
	return next, nil
}

// Listen advances the streak of every user whose day becomes complete.
// Events arrive on the mutating goroutine, so the remote work runs in the
// background; Wait blocks until it has finished.
func (s *Streaks) Listen(events *completion.Events) *completion.Subscription {
	return events.Subscribe(func(ev completion.Event) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if _, err := s.Advance(context.Background(), ev.UserID, ev.Date); err != nil {
				s.logger.Warn("advance streak on completion", "user_id", ev.UserID, "date", ev.Date, "error", err)
			}
		}()
	})
}

func (s *Streaks) Wait() {
	s.wg.Wait()
}
