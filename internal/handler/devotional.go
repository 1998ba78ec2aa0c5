package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/store"
	"github.com/dukerupert/daybreak/internal/websocket"
)

type DevotionalHandler struct {
	store *store.DevotionalStore
	broadcaster
	logger *slog.Logger
}

func NewDevotionalHandler(ds *store.DevotionalStore, hub *websocket.Hub, logger *slog.Logger) *DevotionalHandler {
	return &DevotionalHandler{store: ds, broadcaster: broadcaster{hub}, logger: logger}
}

func (h *DevotionalHandler) Get(w http.ResponseWriter, r *http.Request) {
	date, err := model.ParseDate(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	d, err := h.store.Get(date)
	if err != nil {
		h.logger.Error("get devotional", "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get devotional")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "devotional not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type publishDevotionalRequest struct {
	Date           model.Date `json:"date" validate:"required,day"`
	Title          string     `json:"title" validate:"required"`
	ScriptureRef   string     `json:"scripture_ref" validate:"required"`
	ScriptureText  string     `json:"scripture_text"`
	Body           string     `json:"body"`
	PrayerPrompt   string     `json:"prayer_prompt"`
	ReadingMinutes int        `json:"reading_minutes" validate:"gte=0"`
}

// Publish stores content for a day.
func (h *DevotionalHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishDevotionalRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := h.store.Upsert(model.DevotionalContent(req))
	if err != nil {
		h.logger.Error("publish devotional", "date", req.Date, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to publish devotional")
		return
	}
	msg := websocket.NewMessage("devotional", "published", 0, nil)
	msg.Date = d.Date.String()
	h.broadcast(msg)
	writeJSON(w, http.StatusOK, d)
}
