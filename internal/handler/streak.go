package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/daybreak/internal/auth"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/store"
	"github.com/dukerupert/daybreak/internal/websocket"
)

type StreakHandler struct {
	store *store.StreakStore
	broadcaster
	logger *slog.Logger
}

func NewStreakHandler(ss *store.StreakStore, hub *websocket.Hub, logger *slog.Logger) *StreakHandler {
	return &StreakHandler{store: ss, broadcaster: broadcaster{hub}, logger: logger}
}

func (h *StreakHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	st, err := h.store.Get(userID)
	if err != nil {
		h.logger.Error("get streak", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get streak")
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "streak not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type saveStreakRequest struct {
	UserID        int64      `json:"user_id"`
	CurrentStreak int        `json:"current_streak" validate:"gte=0"`
	LongestStreak int        `json:"longest_streak" validate:"gte=0,gtefield=CurrentStreak"`
	LastPostDate  model.Date `json:"last_post_date" validate:"omitempty,day"`
}

// Save stores the caller's own streak.
func (h *StreakHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveStreakRequest
	if !decode(w, r, &req) {
		return
	}
	caller := auth.UserID(r.Context())
	if req.UserID != 0 && req.UserID != caller {
		writeError(w, http.StatusForbidden, "cannot update another member's streak")
		return
	}
	st := model.Streak{
		UserID:        caller,
		CurrentStreak: req.CurrentStreak,
		LongestStreak: req.LongestStreak,
		LastPostDate:  req.LastPostDate,
	}
	if err := h.store.Save(st); err != nil {
		h.logger.Error("save streak", "user_id", caller, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save streak")
		return
	}
	h.broadcast(websocket.NewMessage("streak", "updated", caller, nil))
	w.WriteHeader(http.StatusNoContent)
}
