package completion

import "github.com/dukerupert/daybreak/internal/model"

// Event is emitted once when a record first becomes fully complete.
type Event struct {
	Date    model.Date
	UserID  int64
	GroupID int64
}

// Events fans completion events out to external listeners.
type Events struct {
	subs subscribers[func(Event)]
}

// NewEvents creates an empty event feed.
func NewEvents() *Events {
	return &Events{}
}

// Subscribe registers fn; it runs on the goroutine that applied the change.
func (e *Events) Subscribe(fn func(Event)) *Subscription {
	ent := e.subs.add(fn)
	return newSubscription(func() { e.subs.remove(ent) })
}

func (e *Events) emit(ev Event) {
	for _, ent := range e.subs.snapshot() {
		ent.fn(ev)
	}
}
