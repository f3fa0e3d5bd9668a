package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/auth"
)

// ErrorResponse is the body of every error reply. Detail is a message, or
// a list of field errors for validation failures.
type ErrorResponse struct {
	Detail interface{} `json:"detail"`
}

// errBadRequest marks malformed request bodies and forms
var errBadRequest = errors.New("bad request")

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string        { return e.msg }
func (e *badRequestError) Is(target error) bool { return target == errBadRequest }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

// statusFor maps domain errors onto HTTP status codes and client-facing
// messages. Upstream and internal details are not exposed.
func statusFor(err error) (int, interface{}) {
	var verr *board.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Fields
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, board.ErrContentNotFound):
		return http.StatusNotFound, "Content not found"
	case errors.Is(err, board.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "User is not an admin"
	case errors.Is(err, auth.ErrInactiveUser):
		return http.StatusForbidden, "User is inactive. Please check your account."
	case errors.Is(err, auth.ErrEmailExists), errors.Is(err, board.ErrUserExists):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, board.ErrAllocationFailed):
		return http.StatusInternalServerError, "Failed to allocate post number"
	case errors.Is(err, board.ErrUpstream):
		return http.StatusBadGateway, "Upstream service failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			"method", r.Method, "path", r.URL.Path, "status", status,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Detail: detail})
}
