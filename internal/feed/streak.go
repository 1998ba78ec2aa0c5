package feed

import "github.com/dukerupert/daybreak/internal/model"

// AdvanceStreak records a qualifying post on day. A post the day after the
// last one extends the streak, a post on or before the last post day changes
// nothing, and anything else starts a new streak of one.
func AdvanceStreak(s model.Streak, day model.Date) model.Streak {
	switch {
	case !day.After(s.LastPostDate):
		// Catching up on an earlier day never rewinds the streak.
		return s
	case !s.LastPostDate.IsZero() && s.LastPostDate.AddDays(1) == day:
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
	}
	s.LastPostDate = day
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	return s
}

// CurrentStreak is the streak as of today: it lapses to zero once a full
// day passes without a post.
func CurrentStreak(s model.Streak, today model.Date) int {
	if s.LastPostDate.IsZero() {
		return 0
	}
	if s.LastPostDate == today || s.LastPostDate.AddDays(1) == today {
		return s.CurrentStreak
	}
	return 0
}
