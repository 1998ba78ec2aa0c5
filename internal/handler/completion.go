package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/daybreak/internal/auth"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/store"
	"github.com/dukerupert/daybreak/internal/websocket"
)

type CompletionHandler struct {
	store      *store.CompletionStore
	groupStore *store.GroupStore
	broadcaster
	logger *slog.Logger
}

func NewCompletionHandler(cs *store.CompletionStore, gs *store.GroupStore, hub *websocket.Hub, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{store: cs, groupStore: gs, broadcaster: broadcaster{hub}, logger: logger}
}

// Get returns one member's record; 404 when none exists.
func (h *CompletionHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	groupID, err := strconv.ParseInt(q.Get("group_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group_id")
		return
	}
	date, err := parseDateQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	if !requireMember(w, r, h.groupStore, groupID) {
		return
	}

	c, err := h.store.Get(userID, groupID, date)
	if err != nil {
		h.logger.Error("get completion", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get completion")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "completion not found")
		return
	}
	writeJSON(w, http.StatusOK, c.CompletionRecord)
}

type upsertCompletionRequest struct {
	UserID     int64      `json:"user_id"`
	GroupID    int64      `json:"group_id" validate:"required"`
	Date       model.Date `json:"date" validate:"required,day"`
	Scripture  *bool      `json:"scripture_completed"`
	Devotional *bool      `json:"devotional_completed"`
	Prayer     *bool      `json:"prayer_completed"`
}

// Upsert applies a partial update to the caller's own record.
func (h *CompletionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertCompletionRequest
	if !decode(w, r, &req) {
		return
	}
	caller := auth.UserID(r.Context())
	if req.UserID != 0 && req.UserID != caller {
		writeError(w, http.StatusForbidden, "cannot update another member's progress")
		return
	}
	if !requireMember(w, r, h.groupStore, req.GroupID) {
		return
	}

	update := model.CompletionUpdate{Scripture: req.Scripture, Devotional: req.Devotional, Prayer: req.Prayer}
	c, became, err := h.store.Upsert(caller, req.GroupID, req.Date, update)
	if err != nil {
		h.logger.Error("upsert completion", "user_id", caller, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save completion")
		return
	}

	msg := websocket.GroupMessage("completion", "updated", c.ID, req.GroupID, req.Date.String())
	msg.Extra = map[string]any{"user_id": caller, "all_completed": c.AllCompleted()}
	h.broadcast(msg)
	if became {
		h.logger.Info("day completed", "user_id", caller, "group_id", req.GroupID, "date", req.Date)
	}
	writeJSON(w, http.StatusOK, c.CompletionRecord)
}

// ListGroup returns every member's record for a day.
func (h *CompletionHandler) ListGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r, "group_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	date, err := parseDateQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	if !requireMember(w, r, h.groupStore, groupID) {
		return
	}

	rows, err := h.store.ListByGroupDate(groupID, date)
	if err != nil {
		h.logger.Error("list completions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list completions")
		return
	}
	recs := make([]model.CompletionRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.CompletionRecord)
	}
	writeJSON(w, http.StatusOK, recs)
}
