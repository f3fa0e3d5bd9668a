package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-board/pkg/board/auth"
)

// AuthHandler handles login and registration
type AuthHandler struct {
	service auth.Service
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service auth.Service, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{service: service, logger: logger}
}

// Routes returns the routes for authentication
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/admin/login", h.AdminLogin)
	r.Post("/user/register", h.RegisterUser)
	return r
}

// AdminLogin exchanges admin credentials for tokens
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, badRequest("invalid request body"))
		return
	}

	tokens, err := h.service.AdminLogin(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, tokens)
}

// RegisterUser creates a regular user account
func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, badRequest("invalid request body"))
		return
	}

	resp, err := h.service.RegisterUser(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}
