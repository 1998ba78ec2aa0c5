package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/daybreak/internal/source"
)

type UploadHandler struct {
	uploader source.Uploader
	logger   *slog.Logger
}

func NewUploadHandler(u source.Uploader, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploader: u, logger: logger}
}

type uploadRequest struct {
	Path string `json:"path" validate:"required"`
	Data []byte `json:"data" validate:"required"`
}

// Upload stores an image for a client that has no object store of its own.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !decode(w, r, &req) {
		return
	}
	if !strings.HasPrefix(req.Path, "posts/") || strings.Contains(req.Path, "..") {
		writeError(w, http.StatusBadRequest, "path must be under posts/")
		return
	}
	url, err := h.uploader.UploadImage(r.Context(), req.Data, req.Path)
	if err != nil {
		h.logger.Error("upload image", "path", req.Path, "error", err)
		writeError(w, http.StatusBadGateway, "failed to store image")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
