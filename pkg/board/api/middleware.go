package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/auth"
)

// Context keys for middleware
type contextKey string

const adminUserKey contextKey = "admin_user"

// RequestLogger logs each request with its status and duration
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// CORSMiddleware handles CORS headers
func CORSMiddleware(allowedOrigins []string, allowedMethods []string, allowedHeaders []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "token"}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			explicit, wildcard := false, false
			for _, allowedOrigin := range allowedOrigins {
				if allowedOrigin == origin {
					explicit = true
					break
				}
				if allowedOrigin == "*" {
					wildcard = true
				}
			}

			// Credentials are only granted to origins listed by name.
			if origin != "" && (explicit || wildcard) {
				if explicit {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Add("Vary", "Origin")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Authorizer resolves a token subject to an admin user
type Authorizer interface {
	Authorize(ctx context.Context, uid string) (*board.User, error)
}

// tokenFromLegacyHeader reads the bare "token" header older clients send.
func tokenFromLegacyHeader(r *http.Request) string {
	return r.Header.Get("token")
}

// RequireAdmin verifies the bearer token and lets only active admins through.
func RequireAdmin(tokens *auth.TokenIssuer, authz Authorizer, logger *slog.Logger) func(http.Handler) http.Handler {
	verify := jwtauth.Verify(tokens.JWTAuth(), jwtauth.TokenFromHeader, tokenFromLegacyHeader)

	return func(next http.Handler) http.Handler {
		return verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := tokens.SubjectFromContext(r.Context())
			if err != nil {
				writeError(w, r, logger, err)
				return
			}

			user, err := authz.Authorize(r.Context(), uid)
			if err != nil {
				writeError(w, r, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), adminUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}
}

// AdminFromContext returns the admin placed in ctx by RequireAdmin
func AdminFromContext(ctx context.Context) (*board.User, bool) {
	user, ok := ctx.Value(adminUserKey).(*board.User)
	return user, ok
}
