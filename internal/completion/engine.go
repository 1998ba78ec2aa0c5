package completion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/source"
)

// State is where a mutation is in its two-phase lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateRolledBack State = "rolled_back"
	// StateSkipped marks a mutation refused before any change (future date).
	StateSkipped State = "skipped"
)

// Mutation tracks one optimistic change. It starts Pending once the local
// change is visible and ends Confirmed, RolledBack or Skipped.
type Mutation struct {
	Scope      Scope
	Update     model.CompletionUpdate
	Previous   model.CompletionRecord
	Optimistic model.CompletionRecord

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newMutation(scope Scope, update model.CompletionUpdate) *Mutation {
	return &Mutation{
		Scope:  scope,
		Update: update,
		state:  StatePending,
		done:   make(chan struct{}),
	}
}

func (m *Mutation) finish(state State, err error) {
	m.mu.Lock()
	m.state = state
	m.err = err
	m.mu.Unlock()
	close(m.done)
}

// Done is closed once the mutation has settled.
func (m *Mutation) Done() <-chan struct{} { return m.done }

func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the remote failure that caused a rollback, if any.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Wait blocks until the mutation settles or ctx ends.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Engine applies completion changes optimistically: the store reflects the
// change before the remote write, and is restored if the write fails.
type Engine struct {
	store  *Store
	source source.Source
	events *Events
	logger *slog.Logger

	// mu makes each read-merge-write of a record atomic with respect to
	// other mutations, rollbacks and reconciliation.
	mu      sync.Mutex
	pending map[Scope]int

	wg sync.WaitGroup
}

// NewEngine creates an engine writing through src. A nil events gets a
// private feed.
func NewEngine(store *Store, src source.Source, events *Events, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = NewEvents()
	}
	return &Engine{store: store, source: src, events: events, logger: logger, pending: make(map[Scope]int)}
}

// Events returns the completion event feed the engine emits on.
func (e *Engine) Events() *Events {
	return e.events
}

// Apply makes the change visible locally and starts the remote write. The
// returned mutation is already Pending (or Skipped) when Apply returns.
func (e *Engine) Apply(ctx context.Context, scope Scope, update model.CompletionUpdate) *Mutation {
	m := newMutation(scope, update)

	if scope.Date.After(e.store.Today()) {
		e.logger.Debug("ignoring completion for future date", "scope", scope.String())
		m.finish(StateSkipped, nil)
		return m
	}

	e.mu.Lock()
	current := e.store.Current(scope)
	optimistic := current.Merge(update)
	m.Previous, m.Optimistic = current, optimistic
	e.store.Write(scope, optimistic)
	e.pending[scope]++
	completed := optimistic.AllCompleted() && !current.AllCompleted()
	e.mu.Unlock()

	if completed {
		e.events.emit(Event{Date: scope.Date, UserID: scope.UserID, GroupID: scope.GroupID})
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.confirm(context.WithoutCancel(ctx), m)
	}()
	return m
}

// UpdateCompletion applies update and waits for the remote write. A failed
// write has already been rolled back when its error is returned.
func (e *Engine) UpdateCompletion(ctx context.Context, scope Scope, update model.CompletionUpdate) error {
	return e.Apply(ctx, scope, update).Wait(ctx)
}

// Wait blocks until every started mutation has settled.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) confirm(ctx context.Context, m *Mutation) {
	scope := m.Scope
	if err := e.source.UpsertCompletion(ctx, scope.UserID, scope.GroupID, scope.Date, m.Update); err != nil {
		e.mu.Lock()
		e.store.Write(scope, e.store.Current(scope).Merge(undo(m.Update, m.Previous)))
		e.settle(scope)
		e.mu.Unlock()
		e.logger.Warn("completion rolled back", "scope", scope.String(), "error", err)
		m.finish(StateRolledBack, fmt.Errorf("save completion: %w", err))
		return
	}

	rec, err := e.source.GetCompletion(ctx, scope.UserID, scope.GroupID, scope.Date)
	e.mu.Lock()
	last := e.settle(scope)
	switch {
	case err != nil:
		// The write landed; the optimistic value stands until the next fetch.
		e.logger.Warn("reconcile completion", "scope", scope.String(), "error", err)
	case rec != nil && last:
		e.store.Write(scope, *rec)
	}
	e.mu.Unlock()
	m.finish(StateConfirmed, nil)
}

// settle drops one pending mutation for scope and reports whether it was
// the last. A server read taken while others are in flight would hide
// their optimistic fields, so only the last one reconciles. Callers hold mu.
func (e *Engine) settle(scope Scope) bool {
	e.pending[scope]--
	if e.pending[scope] > 0 {
		return false
	}
	delete(e.pending, scope)
	return true
}

// undo is the update that puts back prev's value for every field u sets.
// Fields changed by other mutations since are left alone.
func undo(u model.CompletionUpdate, prev model.CompletionRecord) model.CompletionUpdate {
	var out model.CompletionUpdate
	if u.Scripture != nil {
		v := prev.ScriptureCompleted
		out.Scripture = &v
	}
	if u.Devotional != nil {
		v := prev.DevotionalCompleted
		out.Devotional = &v
	}
	if u.Prayer != nil {
		v := prev.PrayerCompleted
		out.Prayer = &v
	}
	return out
}
