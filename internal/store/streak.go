package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/daybreak/internal/model"
)

type StreakStore struct {
	db *sql.DB
}

func NewStreakStore(db *sql.DB) *StreakStore {
	return &StreakStore{db: db}
}

func (s *StreakStore) Get(userID int64) (*model.Streak, error) {
	var st model.Streak
	err := s.db.QueryRow(
		`SELECT user_id, current_streak, longest_streak, last_post_date FROM streaks WHERE user_id = ?`,
		userID,
	).Scan(&st.UserID, &st.CurrentStreak, &st.LongestStreak, &st.LastPostDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	return &st, nil
}

func (s *StreakStore) Save(st model.Streak) error {
	_, err := s.db.Exec(
		`INSERT INTO streaks (user_id, current_streak, longest_streak, last_post_date, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET
		   current_streak = excluded.current_streak,
		   longest_streak = excluded.longest_streak,
		   last_post_date = excluded.last_post_date,
		   updated_at = excluded.updated_at`,
		st.UserID, st.CurrentStreak, st.LongestStreak, string(st.LastPostDate),
	)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}
