package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/daybreak/internal/auth"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/store"
)

type AuthHandler struct {
	userStore    *store.UserStore
	groupStore   *store.GroupStore
	sessionStore *store.SessionStore
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, gs *store.GroupStore, ss *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, groupStore: gs, sessionStore: ss, logger: logger}
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decode(w, r, &req) {
		return
	}

	user, hash, err := h.userStore.GetCredentials(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("sign in lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	// Same answer for unknown users and wrong passwords.
	if user == nil || !auth.CheckPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	h.logger.Info("signed in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"user":       user,
	})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionStore.Delete(auth.SessionID(r.Context())); err != nil {
		h.logger.Error("delete session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.writeProfile(w, auth.UserID(r.Context()))
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	h.writeProfile(w, id)
}

func (h *AuthHandler) writeProfile(w http.ResponseWriter, userID int64) {
	user, err := h.userStore.GetByID(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	groups, err := h.groupStore.ListForUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []model.Group{}
	}
	writeJSON(w, http.StatusOK, model.Profile{User: *user, Groups: groups})
}
