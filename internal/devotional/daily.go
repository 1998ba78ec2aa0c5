package devotional

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukerupert/daybreak/internal/completion"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/refresh"
)

// Deps are the shared, process-wide collaborators of every Daily.
type Deps struct {
	UserID  int64
	GroupID int64
	Store   *completion.Store
	Engine  *completion.Engine
	Content *Content
	Refresh *refresh.Broadcast
	Logger  *slog.Logger
}

// State is what a daily devotional screen renders.
type State struct {
	Date         model.Date
	Content      *model.DevotionalContent
	Completion   model.CompletionRecord
	AllCompleted bool
	Loading      bool
	Err          error
}

// Daily is the view-model for one day's devotional. It stays consistent
// with every other view of the same record through the completion store,
// and re-fetches when a global refresh is requested. Call Close when the
// view goes away.
type Daily struct {
	deps  Deps
	scope completion.Scope

	mu       sync.Mutex
	state    State
	closed   bool
	onChange func(State)

	sub *completion.Subscription
	reg *refresh.Registration
}

// NewDaily binds a view-model to date; the zero date means today.
func NewDaily(deps Deps, date model.Date) *Daily {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if date.IsZero() {
		date = deps.Store.Today()
	}
	scope := completion.Scope{UserID: deps.UserID, GroupID: deps.GroupID, Date: date}
	d := &Daily{
		deps:  deps,
		scope: scope,
		state: State{Date: date, Loading: true},
	}
	d.setCompletion(deps.Store.Current(scope))

	d.sub = deps.Store.Subscribe(scope, func(_ completion.Scope, rec model.CompletionRecord) {
		d.update(func(s *State) { d.setCompletionLocked(s, rec) })
	})
	if deps.Refresh != nil {
		d.reg = deps.Refresh.Register("daily:"+date.String(), d.Refresh)
	}
	return d
}

func (d *Daily) setCompletion(rec model.CompletionRecord) {
	d.setCompletionLocked(&d.state, rec)
}

func (d *Daily) setCompletionLocked(s *State, rec model.CompletionRecord) {
	s.Completion = rec
	s.AllCompleted = rec.AllCompleted()
}

// update mutates the state unless the view is closed, then notifies the
// change listener outside the lock.
func (d *Daily) update(fn func(*State)) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	fn(&d.state)
	snapshot, notify := d.state, d.onChange
	d.mu.Unlock()
	if notify != nil {
		notify(snapshot)
	}
}

// State returns a copy of the current state.
func (d *Daily) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Scope is the completion record this view tracks.
func (d *Daily) Scope() completion.Scope {
	return d.scope
}

// OnChange sets the function called after every state change.
func (d *Daily) OnChange(fn func(State)) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// Load reads content and completion through the caches.
func (d *Daily) Load(ctx context.Context) error {
	d.update(func(s *State) { s.Loading = true })

	content, cerr := d.deps.Content.Get(ctx, d.scope.Date)
	rec, rerr := d.deps.Store.Load(ctx, d.scope)

	err := cerr
	if err == nil {
		err = rerr
	}
	d.update(func(s *State) {
		if cerr == nil {
			s.Content = content
		}
		if rerr == nil {
			d.setCompletionLocked(s, rec)
		}
		s.Loading = false
		s.Err = err
	})
	return err
}

// Refresh re-fetches completion state regardless of freshness, and content
// if it is still missing.
func (d *Daily) Refresh(ctx context.Context) error {
	var err error
	if !d.scope.Date.After(d.deps.Store.Today()) {
		_, err = d.deps.Store.Fetch(ctx, d.scope)
	}

	var content *model.DevotionalContent
	if d.State().Content == nil {
		var cerr error
		content, cerr = d.deps.Content.Get(ctx, d.scope.Date)
		if err == nil {
			err = cerr
		}
	}
	d.update(func(s *State) {
		if content != nil {
			s.Content = content
		}
		s.Err = err
	})
	return err
}

func (d *Daily) MarkScriptureComplete(ctx context.Context) error {
	return d.mark(ctx, model.ScriptureDone)
}

func (d *Daily) MarkDevotionalComplete(ctx context.Context) error {
	return d.mark(ctx, model.DevotionalDone)
}

func (d *Daily) MarkPrayerComplete(ctx context.Context) error {
	return d.mark(ctx, model.PrayerDone)
}

func (d *Daily) mark(ctx context.Context, u model.CompletionUpdate) error {
	err := d.deps.Engine.UpdateCompletion(ctx, d.scope, u)
	d.update(func(s *State) { s.Err = err })
	if err != nil {
		d.deps.Logger.Warn("mark complete", "scope", d.scope.String(), "error", err)
	}
	return err
}

// Close detaches the view from the store and the refresh broadcast. Results
// that arrive afterwards are dropped.
func (d *Daily) Close() {
	d.mu.Lock()
	d.closed = true
	d.onChange = nil
	d.mu.Unlock()
	d.sub.Unsubscribe()
	d.reg.Unregister()
}
