package completion

import "sync"

// subscribers is a copy-on-write list of callbacks. Dispatch works on the
// slice captured when it starts, so an entry added by a callback is not
// called for the notification already in progress, and an entry removed
// mid-dispatch may still see that one notification.
type subscribers[F any] struct {
	mu      sync.Mutex
	entries []*entry[F]
}

type entry[F any] struct {
	fn F
}

func (s *subscribers[F]) add(fn F) *entry[F] {
	e := &entry[F]{fn: fn}
	s.mu.Lock()
	next := make([]*entry[F], len(s.entries), len(s.entries)+1)
	copy(next, s.entries)
	s.entries = append(next, e)
	s.mu.Unlock()
	return e
}

func (s *subscribers[F]) remove(e *entry[F]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.entries {
		if cur == e {
			next := make([]*entry[F], 0, len(s.entries)-1)
			next = append(next, s.entries[:i]...)
			s.entries = append(next, s.entries[i+1:]...)
			return
		}
	}
}

func (s *subscribers[F]) snapshot() []*entry[F] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries
}

func (s *subscribers[F]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Subscription is the handle returned by every Subscribe call. Unsubscribe
// is idempotent.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}
