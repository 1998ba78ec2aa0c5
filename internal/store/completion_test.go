package store

import (
	"testing"

	"github.com/dukerupert/daybreak/internal/model"
)

func TestCompletionGetMissing(t *testing.T) {
	db := setupTestDB(t)
	groupID, ids := createGroupWithMembers(t, db, "alice")

	c, err := NewCompletionStore(db).Get(ids[0], groupID, "2024-01-02")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c != nil {
		t.Error("expected nil for missing completion")
	}
}

func TestCompletionUpsertInsertsThenUpdates(t *testing.T) {
	db := setupTestDB(t)
	groupID, ids := createGroupWithMembers(t, db, "alice")
	cs := NewCompletionStore(db)
	day := model.Date("2024-01-02")

	c, became, err := cs.Upsert(ids[0], groupID, day, model.ScriptureDone)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !c.ScriptureCompleted || c.DevotionalCompleted || c.PrayerCompleted {
		t.Errorf("after first upsert = %+v", c.CompletionRecord)
	}
	if became {
		t.Error("did not become complete yet")
	}
	firstID := c.ID

	c, _, err = cs.Upsert(ids[0], groupID, day, model.DevotionalDone)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if c.ID != firstID {
		t.Errorf("id = %d, want same row %d", c.ID, firstID)
	}
	if !c.ScriptureCompleted || !c.DevotionalCompleted {
		t.Errorf("fields not merged: %+v", c.CompletionRecord)
	}

	c, became, err = cs.Upsert(ids[0], groupID, day, model.PrayerDone)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !c.AllCompleted() || !became {
		t.Errorf("expected transition to complete, got %+v became=%v", c.CompletionRecord, became)
	}

	// Repeating a completed step is not a second transition.
	_, became, _ = cs.Upsert(ids[0], groupID, day, model.PrayerDone)
	if became {
		t.Error("expected no transition for an already complete row")
	}
}

func TestCompletionListByGroupDate(t *testing.T) {
	db := setupTestDB(t)
	groupID, ids := createGroupWithMembers(t, db, "alice", "bob")
	cs := NewCompletionStore(db)

	cs.Upsert(ids[0], groupID, "2024-01-02", model.ScriptureDone)
	cs.Upsert(ids[1], groupID, "2024-01-02", model.PrayerDone)
	cs.Upsert(ids[1], groupID, "2024-01-03", model.PrayerDone)

	rows, err := cs.ListByGroupDate(groupID, "2024-01-02")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].UserID != ids[0] || rows[1].UserID != ids[1] {
		t.Errorf("rows not ordered by user: %+v", rows)
	}

	rng, err := cs.ListByUserRange(ids[1], groupID, "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(rng) != 2 || rng[0].Date != "2024-01-02" {
		t.Errorf("range = %+v", rng)
	}
}
