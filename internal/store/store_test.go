package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/daybreak/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createGroupWithMembers creates a group and one user per name.
func createGroupWithMembers(t *testing.T, db *sql.DB, names ...string) (int64, []int64) {
	t.Helper()
	us := NewUserStore(db)
	gs := NewGroupStore(db)

	g, err := gs.Create("Test Group")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	var ids []int64
	for _, n := range names {
		u, err := us.Create(n+"@example.com", n, "")
		if err != nil {
			t.Fatalf("create user %s: %v", n, err)
		}
		if _, err := gs.AddMember(g.ID, u.ID, "", ""); err != nil {
			t.Fatalf("add member %s: %v", n, err)
		}
		ids = append(ids, u.ID)
	}
	return g.ID, ids
}
