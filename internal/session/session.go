// Package session keeps the signed-in user's profile.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/source"
)

// DefaultTimeout bounds every remote read made by the store.
const DefaultTimeout = 10 * time.Second

// ErrFetchTimeout is returned when a profile read does not finish in time.
var ErrFetchTimeout = errors.New("profile fetch timed out")

// ErrSignedOut is returned by reads made with no user signed in.
var ErrSignedOut = errors.New("not signed in")

// Store holds the current user and their profile.
type Store struct {
	source  source.Source
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	userID  int64
	profile *model.Profile
}

// NewStore creates a session store. A non-positive timeout means DefaultTimeout.
func NewStore(src source.Source, timeout time.Duration, logger *slog.Logger) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{source: src, timeout: timeout, logger: logger}
}

// SignIn records userID as the current user and drops any cached profile.
func (s *Store) SignIn(userID int64) {
	s.mu.Lock()
	s.userID = userID
	s.profile = nil
	s.mu.Unlock()
}

func (s *Store) SignOut() {
	s.SignIn(0)
}

func (s *Store) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Profile returns the cached profile, if any.
func (s *Store) Profile() *model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Load fetches the current user's profile, bounded by the store timeout.
func (s *Store) Load(ctx context.Context) (*model.Profile, error) {
	userID := s.UserID()
	if userID == 0 {
		return nil, ErrSignedOut
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.source.GetProfile(ctx, userID)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("profile fetch timed out", "user_id", userID, "timeout", s.timeout)
		return nil, ErrFetchTimeout
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	s.mu.Lock()
	// Ignore the result if the user changed while it was in flight.
	if s.userID == userID {
		s.profile = p
	}
	s.mu.Unlock()
	return p, nil
}

// DefaultGroupID returns the first group of the cached profile, or 0.
func (s *Store) DefaultGroupID() int64 {
	p := s.Profile()
	if p == nil || len(p.Groups) == 0 {
		return 0
	}
	return p.Groups[0].ID
}
