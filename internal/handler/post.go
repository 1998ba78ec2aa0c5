package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/daybreak/internal/auth"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/store"
	"github.com/dukerupert/daybreak/internal/websocket"
)

type PostHandler struct {
	store      *store.PostStore
	groupStore *store.GroupStore
	broadcaster
	logger *slog.Logger
}

func NewPostHandler(ps *store.PostStore, gs *store.GroupStore, hub *websocket.Hub, logger *slog.Logger) *PostHandler {
	return &PostHandler{store: ps, groupStore: gs, broadcaster: broadcaster{hub}, logger: logger}
}

func (h *PostHandler) ListGroup(w http.ResponseWriter, r *http.Request) {
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
	posts, err := h.store.ListByGroupDate(groupID, date)
	if err != nil {
		h.logger.Error("list posts", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

type createPostRequest struct {
	GroupID  int64      `json:"group_id" validate:"required"`
	Date     model.Date `json:"date" validate:"required,day"`
	ImageURL string     `json:"image_url" validate:"required"`
	Caption  string     `json:"caption" validate:"max=500"`
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decode(w, r, &req) {
		return
	}
	if !requireMember(w, r, h.groupStore, req.GroupID) {
		return
	}
	caller := auth.UserID(r.Context())
	p, err := h.store.Create(model.Post{
		UserID:   caller,
		GroupID:  req.GroupID,
		Date:     req.Date,
		ImageURL: req.ImageURL,
		Caption:  strings.TrimSpace(req.Caption),
	})
	if err != nil {
		h.logger.Error("create post", "user_id", caller, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}
	h.broadcast(websocket.GroupMessage("post", "created", p.ID, p.GroupID, p.Date.String()))
	writeJSON(w, http.StatusCreated, p)
}

// post loads the post named by the id path value and checks the caller can
// see it.
func (h *PostHandler) post(w http.ResponseWriter, r *http.Request) *model.Post {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	p, err := h.store.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get post")
		return nil
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return nil
	}
	if !requireMember(w, r, h.groupStore, p.GroupID) {
		return nil
	}
	return p
}

type likeRequest struct {
	UserID int64 `json:"user_id"`
	Liked  bool  `json:"liked"`
}

func (h *PostHandler) SetLike(w http.ResponseWriter, r *http.Request) {
	p := h.post(w, r)
	if p == nil {
		return
	}
	var req likeRequest
	if !decode(w, r, &req) {
		return
	}
	caller := auth.UserID(r.Context())
	if req.UserID != 0 && req.UserID != caller {
		writeError(w, http.StatusForbidden, "cannot like on behalf of another member")
		return
	}
	if err := h.store.SetLike(p.ID, caller, req.Liked); err != nil {
		h.logger.Error("set like", "post_id", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save like")
		return
	}
	action := "liked"
	if !req.Liked {
		action = "unliked"
	}
	h.broadcast(websocket.GroupMessage("post", action, p.ID, p.GroupID, p.Date.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) Likes(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r, "post_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post_id")
		return
	}
	likes, err := h.store.ListLikes(ids)
	if err != nil {
		h.logger.Error("list likes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list likes")
		return
	}
	if likes == nil {
		likes = []model.Like{}
	}
	writeJSON(w, http.StatusOK, likes)
}

type commentRequest struct {
	Body string `json:"body" validate:"required,max=1000"`
}

func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	p := h.post(w, r)
	if p == nil {
		return
	}
	var req commentRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.store.AddComment(p.ID, auth.UserID(r.Context()), strings.TrimSpace(req.Body))
	if err != nil {
		h.logger.Error("add comment", "post_id", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add comment")
		return
	}
	h.broadcast(websocket.GroupMessage("comment", "created", c.ID, p.GroupID, p.Date.String()))
	writeJSON(w, http.StatusCreated, c)
}

func (h *PostHandler) Comments(w http.ResponseWriter, r *http.Request) {
	p := h.post(w, r)
	if p == nil {
		return
	}
	comments, err := h.store.ListComments(p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *PostHandler) CommentCounts(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r, "post_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post_id")
		return
	}
	counts, err := h.store.CommentCounts(ids)
	if err != nil {
		h.logger.Error("count comments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count comments")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
