package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/auth"
)

// RouterConfig collects the services behind the HTTP surface
type RouterConfig struct {
	Contents       board.Service
	Auth           auth.Service
	Tokens         *auth.TokenIssuer
	Uploader       board.ImageUploader
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxUploadBytes int64
	RequestTimeout time.Duration

	// Static, when set, is served under StaticPrefix
	Static       http.Handler
	StaticPrefix string
}

// NewRouter builds the chi router for the board API
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	contents := NewContentHandler(cfg.Contents, logger, cfg.MaxUploadBytes)
	authHandler := NewAuthHandler(cfg.Auth, logger)
	admin := NewAdminHandler(cfg.Uploader, cfg.Auth, logger, cfg.MaxUploadBytes)
	requireAdmin := RequireAdmin(cfg.Tokens, cfg.Auth, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.AllowedOrigins, nil, nil))
	r.Use(middleware.Timeout(timeout))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"message": "simple-board API"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Mount("/auth", authHandler.Routes())

	r.Route("/content", func(r chi.Router) {
		r.Get("/", contents.ListContents)
		r.Get("/{post_number}", contents.GetContent)
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Mount("/", contents.AdminRoutes())
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Mount("/", admin.Routes())
	})

	if cfg.Static != nil {
		prefix := "/" + strings.Trim(cfg.StaticPrefix, "/")
		if prefix == "/" {
			prefix = "/static"
		}
		r.Handle(prefix+"/*", http.StripPrefix(prefix, cfg.Static))
	}

	return r
}
