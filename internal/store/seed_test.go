package store

import (
	"testing"

	"github.com/dukerupert/daybreak/internal/auth"
	"github.com/dukerupert/daybreak/internal/model"
)

func TestSeedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	today := model.Date("2024-01-10")

	first, err := Seed(db, today, "daybreak")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	second, err := Seed(db, today, "daybreak")
	if err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if first.GroupID != second.GroupID {
		t.Errorf("group id changed: %d -> %d", first.GroupID, second.GroupID)
	}

	members, _ := NewGroupStore(db).ListMembers(first.GroupID)
	if len(members) != 3 {
		t.Errorf("members = %d, want 3", len(members))
	}

	devs, _ := NewDevotionalStore(db).ListRange(today.AddDays(-3), today.AddDays(3))
	if len(devs) != 7 {
		t.Errorf("devotionals = %d, want 7", len(devs))
	}

	alice := first.Users["alice@daybreak.test"]
	c, _ := NewCompletionStore(db).Get(alice, first.GroupID, today)
	if c == nil || !c.AllCompleted() {
		t.Errorf("alice completion = %+v, want complete", c)
	}

	_, hash, _ := NewUserStore(db).GetCredentials("you@daybreak.test")
	if !auth.CheckPassword(hash, "daybreak") {
		t.Error("expected seeded password to verify")
	}
}
