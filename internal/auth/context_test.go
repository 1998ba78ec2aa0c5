package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    1,
		SessionID: 3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestHelpersWithoutAuth(t *testing.T) {
	ctx := context.Background()
	if got := UserID(ctx); got != 0 {
		t.Errorf("UserID = %d, want 0", got)
	}
	if got := SessionID(ctx); got != 0 {
		t.Errorf("SessionID = %d, want 0", got)
	}
}

func TestHelpersWithAuth(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 5, SessionID: 9})
	if got := UserID(ctx); got != 5 {
		t.Errorf("UserID = %d, want 5", got)
	}
	if got := SessionID(ctx); got != 9 {
		t.Errorf("SessionID = %d, want 9", got)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
	if CheckPassword("", "") {
		t.Error("expected empty hash to never match")
	}
}
