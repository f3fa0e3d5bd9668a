package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-board/pkg/board"
)

// DefaultMaxUploadBytes bounds a multipart request body.
const DefaultMaxUploadBytes = 64 << 20

// ContentDetail is the admin view of a content
type ContentDetail struct {
	*board.Content
	IsDeleted bool `json:"is_deleted"`
}

// ContentHandler handles HTTP requests for board contents
type ContentHandler struct {
	service        board.Service
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewContentHandler creates a new content handler
func NewContentHandler(service board.Service, logger *slog.Logger, maxUploadBytes int64) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ContentHandler{service: service, logger: logger, maxUploadBytes: maxUploadBytes}
}

// AdminRoutes returns the write and detail routes; callers add RequireAdmin
func (h *ContentHandler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/create", h.CreateContent)
	r.Get("/{post_number}", h.GetContentDetail)
	r.Put("/{post_number}", h.UpdateContent)
	r.Delete("/{post_number}", h.DeleteContent)
	return r
}

func postNumberParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "post_number")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return 0, board.NewValidationError("post_number", "must be a positive integer")
	}
	return n, nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, board.NewValidationError(name, "must be a positive integer")
	}
	return n, nil
}

// ListContents returns a page of active contents
func (h *ContentHandler) ListContents(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.service.ListContents(r.Context(), board.ListContentRequest{
		Page:     page,
		Limit:    limit,
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, result)
}

// GetContent returns an active content
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	postNumber, err := postNumberParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	content, err := h.service.GetContent(r.Context(), postNumber)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, content)
}

// GetContentDetail returns a content in any state
func (h *ContentHandler) GetContentDetail(w http.ResponseWriter, r *http.Request) {
	postNumber, err := postNumberParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	content, err := h.service.GetContentDetail(r.Context(), postNumber)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, ContentDetail{Content: content, IsDeleted: content.IsDeleted()})
}

// CreateContent accepts a multipart form with category, title, contents,
// optional image_urls and image files under "images"
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
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

	req := board.CreateContentRequest{
		Category: r.FormValue("category"),
		Title:    r.FormValue("title"),
		Contents: r.FormValue("contents"),
		Images:   r.MultipartForm.Value["image_urls"],
		Files:    files,
	}

	content, err := h.service.CreateContent(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Content created via API", "post_number", content.PostNumber, "images", len(content.Images))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// UpdateContent applies a JSON partial update
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	postNumber, err := postNumberParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req board.UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, badRequest("invalid request body"))
		return
	}

	content, err := h.service.UpdateContent(r.Context(), postNumber, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, content)
}

// DeleteContent soft deletes a content
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	postNumber, err := postNumberParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteContent(r.Context(), postNumber); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func readImageFiles(headers []*multipart.FileHeader) ([]board.ImageFile, error) {
	files := make([]board.ImageFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot open %s", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read %s", fh.Filename)
		}
		files = append(files, board.ImageFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}
