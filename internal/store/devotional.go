package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/daybreak/internal/model"
)

type DevotionalStore struct {
	db *sql.DB
}

func NewDevotionalStore(db *sql.DB) *DevotionalStore {
	return &DevotionalStore{db: db}
}

func scanDevotional(scanner interface{ Scan(...any) error }) (*model.DevotionalContent, error) {
	var d model.DevotionalContent
	err := scanner.Scan(&d.Date, &d.Title, &d.ScriptureRef, &d.ScriptureText, &d.Body, &d.PrayerPrompt, &d.ReadingMinutes)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const devotionalCols = `date, title, scripture_ref, scripture_text, body, prayer_prompt, reading_minutes`

func (s *DevotionalStore) Get(date model.Date) (*model.DevotionalContent, error) {
	row := s.db.QueryRow(`SELECT `+devotionalCols+` FROM devotionals WHERE date = ?`, string(date))
	d, err := scanDevotional(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get devotional: %w", err)
	}
	return d, nil
}

// Upsert publishes content for its date, replacing any earlier version.
func (s *DevotionalStore) Upsert(d model.DevotionalContent) (*model.DevotionalContent, error) {
	_, err := s.db.Exec(
		`INSERT INTO devotionals (`+devotionalCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
		   title = excluded.title,
		   scripture_ref = excluded.scripture_ref,
		   scripture_text = excluded.scripture_text,
		   body = excluded.body,
		   prayer_prompt = excluded.prayer_prompt,
		   reading_minutes = excluded.reading_minutes`,
		string(d.Date), d.Title, d.ScriptureRef, d.ScriptureText, d.Body, d.PrayerPrompt, d.ReadingMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert devotional: %w", err)
	}
	return s.Get(d.Date)
}

// ListRange returns content for start..end inclusive, by date.
func (s *DevotionalStore) ListRange(start, end model.Date) ([]model.DevotionalContent, error) {
	rows, err := s.db.Query(
		`SELECT `+devotionalCols+` FROM devotionals WHERE date >= ? AND date <= ? ORDER BY date`,
		string(start), string(end),
	)
	if err != nil {
		return nil, fmt.Errorf("list devotionals: %w", err)
	}
	defer rows.Close()

	var out []model.DevotionalContent
	for rows.Next() {
		d, err := scanDevotional(rows)
		if err != nil {
			return nil, fmt.Errorf("scan devotional: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
