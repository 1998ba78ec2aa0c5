package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/store"
)

type GroupHandler struct {
	store  *store.GroupStore
	logger *slog.Logger
}

func NewGroupHandler(gs *store.GroupStore, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{store: gs, logger: logger}
}

func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r, "group_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	if !requireMember(w, r, h.store, groupID) {
		return
	}
	members, err := h.store.ListMembers(groupID)
	if err != nil {
		h.logger.Error("list members", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}
