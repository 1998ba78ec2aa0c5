package model

type Streak struct {
	UserID        int64 `json:"user_id"`
	CurrentStreak int   `json:"current_streak"`
	LongestStreak int   `json:"longest_streak"`
	LastPostDate  Date  `json:"last_post_date,omitempty"`
}
