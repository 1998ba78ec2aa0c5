package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/dukerupert/daybreak/internal/auth"
	"github.com/dukerupert/daybreak/internal/database"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/store"
)

type completionFixture struct {
	h       *CompletionHandler
	member  int64
	other   int64
	outside int64
	groupID int64
}

func setupCompletionHandler(t *testing.T) completionFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	groups := store.NewGroupStore(db)
	mk := func(email, name string) int64 {
		u, err := users.Create(email, name, "x")
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		return u.ID
	}
	fx := completionFixture{
		member:  mk("you@example.com", "You"),
		other:   mk("alice@example.com", "Alice"),
		outside: mk("eve@example.com", "Eve"),
	}
	g, err := groups.Create("Morning Group")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	fx.groupID = g.ID
	for _, id := range []int64{fx.member, fx.other} {
		if _, err := groups.AddMember(g.ID, id, "member", ""); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fx.h = NewCompletionHandler(store.NewCompletionStore(db), groups, nil, logger)
	return fx
}

func asUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID}))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestUpsertValidation(t *testing.T) {
	fx := setupCompletionHandler(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{`, "invalid JSON"},
		{"missing group", `{"date":"2024-01-02"}`, "groupid is required"},
		{"bad date", `{"group_id":1,"date":"Jan 2"}`, "date is not a date (YYYY-MM-DD)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asUser(httptest.NewRequest(http.MethodPut, "/api/completions", strings.NewReader(tt.body)), fx.member)
			rec := httptest.NewRecorder()
			fx.h.Upsert(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := errorBody(t, rec); got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpsertAndGet(t *testing.T) {
	fx := setupCompletionHandler(t)
	body := `{"group_id":` + itoa(fx.groupID) + `,"date":"2024-01-02","prayer_completed":true}`
	rec := httptest.NewRecorder()
	fx.h.Upsert(rec, asUser(httptest.NewRequest(http.MethodPut, "/api/completions", strings.NewReader(body)), fx.member))
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d: %s", rec.Code, rec.Body.String())
	}
	var saved model.CompletionRecord
	json.NewDecoder(rec.Body).Decode(&saved)
	if !saved.PrayerCompleted || saved.ScriptureCompleted || saved.UserID != fx.member {
		t.Errorf("saved = %+v", saved)
	}

	// Another member can read it.
	url := "/api/completions?user_id=" + itoa(fx.member) + "&group_id=" + itoa(fx.groupID) + "&date=2024-01-02"
	rec = httptest.NewRecorder()
	fx.h.Get(rec, asUser(httptest.NewRequest(http.MethodGet, url, nil), fx.other))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Missing rows are 404.
	url = "/api/completions?user_id=" + itoa(fx.other) + "&group_id=" + itoa(fx.groupID) + "&date=2024-01-02"
	rec = httptest.NewRecorder()
	fx.h.Get(rec, asUser(httptest.NewRequest(http.MethodGet, url, nil), fx.other))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}

func TestUpsertForbidden(t *testing.T) {
	fx := setupCompletionHandler(t)
	tests := []struct {
		name   string
		caller int64
		body   string
		want   string
	}{
		{"other user's record", fx.member, `{"user_id":` + itoa(fx.other) + `,"group_id":` + itoa(fx.groupID) + `,"date":"2024-01-02"}`, "cannot update another member's progress"},
		{"not a member", fx.outside, `{"group_id":` + itoa(fx.groupID) + `,"date":"2024-01-02"}`, "not a member of this group"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			fx.h.Upsert(rec, asUser(httptest.NewRequest(http.MethodPut, "/api/completions", strings.NewReader(tt.body)), tt.caller))
			if rec.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", rec.Code)
			}
			if got := errorBody(t, rec); got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListGroup(t *testing.T) {
	fx := setupCompletionHandler(t)
	for _, id := range []int64{fx.member, fx.other} {
		body := `{"group_id":` + itoa(fx.groupID) + `,"date":"2024-01-02","scripture_completed":true}`
		rec := httptest.NewRecorder()
		fx.h.Upsert(rec, asUser(httptest.NewRequest(http.MethodPut, "/api/completions", strings.NewReader(body)), id))
		if rec.Code != http.StatusOK {
			t.Fatalf("upsert status = %d", rec.Code)
		}
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/groups/x/completions?date=2024-01-02", nil), fx.member)
	req.SetPathValue("group_id", itoa(fx.groupID))
	rec := httptest.NewRecorder()
	fx.h.ListGroup(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var recs []model.CompletionRecord
	json.NewDecoder(rec.Body).Decode(&recs)
	if len(recs) != 2 {
		t.Errorf("got %d records, want 2", len(recs))
	}

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/groups/x/completions", nil), fx.member)
	req.SetPathValue("group_id", itoa(fx.groupID))
	rec = httptest.NewRecorder()
	fx.h.ListGroup(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing date status = %d, want 400", rec.Code)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
