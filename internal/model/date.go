package model

import (
	"fmt"
	"time"
)

// DateLayout is the ISO day format used for every date key.
const DateLayout = "2006-01-02"

// Date is a calendar day in ISO form (YYYY-MM-DD). Lexical order is
// chronological order.
type Date string

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the day n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) After(o Date) bool  { return d > o }
func (d Date) Before(o Date) bool { return d < o }
func (d Date) IsZero() bool       { return d == "" }
func (d Date) String() string     { return string(d) }
