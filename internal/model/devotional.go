package model

// DevotionalContent is the reading plan for one calendar day. It never
// changes once published.
type DevotionalContent struct {
	Date           Date   `json:"date"`
	Title          string `json:"title"`
	ScriptureRef   string `json:"scripture_ref"`
	ScriptureText  string `json:"scripture_text"`
	Body           string `json:"body"`
	PrayerPrompt   string `json:"prayer_prompt"`
	ReadingMinutes int    `json:"reading_minutes"`
}
