package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/auth"
)

// UserResponse is the admin view of a user
type UserResponse struct {
	*board.User
	IsDeleted bool `json:"is_deleted"`
}

// AdminHandler serves image uploads and user management
type AdminHandler struct {
	uploader       board.ImageUploader
	users          auth.Service
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(uploader board.ImageUploader, users auth.Service, logger *slog.Logger, maxUploadBytes int64) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &AdminHandler{uploader: uploader, users: users, logger: logger, maxUploadBytes: maxUploadBytes}
}

// Routes returns the admin routes; callers add RequireAdmin
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload", h.UploadImages)
	r.Get("/users/{uid}", h.GetUser)
	r.Put("/users/{uid}", h.UpdateUser)
	r.Delete("/users/{uid}", h.DeleteUser)
	return r
}

// UploadImages stores the "images" files and returns their URLs
func (h *AdminHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeError(w, r, h.logger, errors.New("image uploader is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, h.logger, badRequest("invalid multipart form"))
		return
	}

	files, err := readImageFiles(r.MultipartForm.File["images"])
	if err != nil {
		writeError(w, r, h.logger, badRequest(err.Error()))
		return
	}
	if len(files) == 0 {
		writeError(w, r, h.logger, board.NewValidationError("images", "is required"))
		return
	}

	urls, err := h.uploader.UploadImages(r.Context(), files)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, urls)
}

// GetUser returns an active user
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, UserResponse{User: user, IsDeleted: user.IsDeleted()})
}

// UpdateUser applies a JSON partial update to a user
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req auth.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, badRequest("invalid request body"))
		return
	}

	user, err := h.users.UpdateUser(r.Context(), chi.URLParam(r, "uid"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, UserResponse{User: user, IsDeleted: user.IsDeleted()})
}

// DeleteUser soft deletes a user
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if admin, ok := AdminFromContext(r.Context()); ok && admin.UID == uid {
		writeError(w, r, h.logger, badRequest("cannot delete your own account"))
		return
	}

	if err := h.users.DeleteUser(r.Context(), uid); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
