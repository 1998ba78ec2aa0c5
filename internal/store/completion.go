package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/daybreak/internal/model"
)

type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.CompletionRow, error) {
	var c model.CompletionRow
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.GroupID, &c.Date,
		&c.ScriptureCompleted, &c.DevotionalCompleted, &c.PrayerCompleted,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const completionCols = `id, user_id, group_id, date, scripture_completed, devotional_completed, prayer_completed, created_at, updated_at`

func (s *CompletionStore) Get(userID, groupID int64, date model.Date) (*model.CompletionRow, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM completions WHERE user_id = ? AND group_id = ? AND date = ?`,
		userID, groupID, string(date),
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// Upsert applies u to the row for (user, group, date), updating it if it
// exists and inserting it otherwise. It returns the resulting row and
// whether the row went from incomplete to fully complete.
func (s *CompletionStore) Upsert(userID, groupID int64, date model.Date, u model.CompletionUpdate) (*model.CompletionRow, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT `+completionCols+` FROM completions WHERE user_id = ? AND group_id = ? AND date = ?`,
		userID, groupID, string(date),
	)
	existing, err := scanCompletion(row)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("get completion: %w", err)
	}

	prev := model.CompletionRecord{UserID: userID, GroupID: groupID, Date: date}
	if existing != nil {
		prev = existing.CompletionRecord
	}
	next := prev.Merge(u)

	if existing != nil {
		_, err = tx.Exec(
			`UPDATE completions SET scripture_completed = ?, devotional_completed = ?, prayer_completed = ?,
			   updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			next.ScriptureCompleted, next.DevotionalCompleted, next.PrayerCompleted, existing.ID,
		)
		if err != nil {
			return nil, false, fmt.Errorf("update completion: %w", err)
		}
	} else {
		_, err = tx.Exec(
			`INSERT INTO completions (user_id, group_id, date, scripture_completed, devotional_completed, prayer_completed)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			userID, groupID, string(date), next.ScriptureCompleted, next.DevotionalCompleted, next.PrayerCompleted,
		)
		if err != nil {
			return nil, false, fmt.Errorf("insert completion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}

	c, err := s.Get(userID, groupID, date)
	if err != nil {
		return nil, false, err
	}
	return c, !prev.AllCompleted() && next.AllCompleted(), nil
}

// ListByGroupDate returns every member's row for the group on date.
func (s *CompletionStore) ListByGroupDate(groupID int64, date model.Date) ([]model.CompletionRow, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completions WHERE group_id = ? AND date = ? ORDER BY user_id`,
		groupID, string(date),
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var out []model.CompletionRow
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ListByUserRange returns a user's rows in a group between two days inclusive.
func (s *CompletionStore) ListByUserRange(userID, groupID int64, start, end model.Date) ([]model.CompletionRow, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completions
		 WHERE user_id = ? AND group_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		userID, groupID, string(start), string(end),
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by range: %w", err)
	}
	defer rows.Close()

	var out []model.CompletionRow
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
