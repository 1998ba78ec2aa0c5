package model

import "time"

// CompletionRecord is a member's progress for one day within a group.
// Identity is (UserID, GroupID, Date).
type CompletionRecord struct {
	UserID              int64 `json:"user_id"`
	GroupID             int64 `json:"group_id"`
	Date                Date  `json:"date"`
	ScriptureCompleted  bool  `json:"scripture_completed"`
	DevotionalCompleted bool  `json:"devotional_completed"`
	PrayerCompleted     bool  `json:"prayer_completed"`
}

// AllCompleted reports whether scripture, devotional and prayer are all done.
func (c CompletionRecord) AllCompleted() bool {
	return c.ScriptureCompleted && c.DevotionalCompleted && c.PrayerCompleted
}

// Merge returns c with every field set in u applied.
func (c CompletionRecord) Merge(u CompletionUpdate) CompletionRecord {
	if u.Scripture != nil {
		c.ScriptureCompleted = *u.Scripture
	}
	if u.Devotional != nil {
		c.DevotionalCompleted = *u.Devotional
	}
	if u.Prayer != nil {
		c.PrayerCompleted = *u.Prayer
	}
	return c
}

// CompletionUpdate is a partial update; nil fields are left untouched.
type CompletionUpdate struct {
	Scripture  *bool `json:"scripture_completed,omitempty"`
	Devotional *bool `json:"devotional_completed,omitempty"`
	Prayer     *bool `json:"prayer_completed,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u CompletionUpdate) IsEmpty() bool {
	return u.Scripture == nil && u.Devotional == nil && u.Prayer == nil
}

func boolPtr(b bool) *bool { return &b }

var (
	ScriptureDone  = CompletionUpdate{Scripture: boolPtr(true)}
	DevotionalDone = CompletionUpdate{Devotional: boolPtr(true)}
	PrayerDone     = CompletionUpdate{Prayer: boolPtr(true)}
)

// CompletionRow is the persisted form of a record on the backend.
type CompletionRow struct {
	ID int64 `json:"id"`
	CompletionRecord
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
