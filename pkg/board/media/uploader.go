// Package media validates, optimizes and stores uploaded images.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-board/pkg/board"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxSize      = 10 * 1024 * 1024
	DefaultMaxDimension = 1200
	DefaultQuality      = 75
	DefaultKeyPrefix    = "images/"
)

// DefaultAllowedTypes are the accepted upload content types.
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Config controls validation and optimization
type Config struct {
	AllowedTypes []string
	MaxSize      int64
	MaxDimension int
	Quality      int
	KeyPrefix    string
}

// Uploader implements board.ImageUploader on top of a BlobStore.
type Uploader struct {
	store  board.BlobStore
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Uploader
type Option func(*Uploader)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(u *Uploader) {
		u.logger = l
	}
}

// WithClock replaces time.Now for filename timestamps
func WithClock(now func() time.Time) Option {
	return func(u *Uploader) {
		u.now = now
	}
}

// NewUploader creates an uploader writing to store
func NewUploader(store board.BlobStore, config Config, opts ...Option) *Uploader {
	if len(config.AllowedTypes) == 0 {
		config.AllowedTypes = DefaultAllowedTypes
	}
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultMaxSize
	}
	if config.MaxDimension <= 0 {
		config.MaxDimension = DefaultMaxDimension
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = DefaultQuality
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}

	u := &Uploader{
		store:  store,
		config: config,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// UploadImages validates every file, then optimizes and stores them in order.
// If any upload fails the objects already written by this call are removed.
func (u *Uploader) UploadImages(ctx context.Context, files []board.ImageFile) ([]string, error) {
	for i := range files {
		if err := u.Validate(&files[i]); err != nil {
			return nil, err
		}
	}

	urls := make([]string, 0, len(files))
	uploaded := make([]string, 0, len(files))
	for _, file := range files {
		data, mimeType := u.Optimize(file.Data, file.ContentType)
		key := u.config.KeyPrefix + SafeFilename(file.Filename, extensionFor(mimeType, file.Filename), u.now())

		err := u.store.Upload(ctx, bytes.NewReader(data), board.UploadParams{
			ObjectKey: key,
			MimeType:  mimeType,
			Size:      int64(len(data)),
		})
		if err != nil {
			u.logger.Error("Failed to upload image", "filename", file.Filename, "key", key, "error", err)
			u.cleanup(uploaded)
			return nil, &board.UpstreamError{Service: "storage", Op: "upload", Err: err}
		}

		uploaded = append(uploaded, key)
		urls = append(urls, u.store.PublicURL(key))
		u.logger.Info("Image uploaded", "key", key, "size", len(data), "mime_type", mimeType)
	}
	return urls, nil
}

// DiscardImages deletes the objects behind urls. URLs this store did not
// produce are skipped.
func (u *Uploader) DiscardImages(ctx context.Context, urls []string) {
	base := u.store.PublicURL("")
	keys := make([]string, 0, len(urls))
	for _, url := range urls {
		if key, ok := strings.CutPrefix(url, base); ok && key != "" {
			keys = append(keys, key)
		}
	}
	u.cleanup(keys)
}

func (u *Uploader) cleanup(keys []string) {
	// the request context may already be done
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := u.store.Delete(ctx, key); err != nil {
			u.logger.Warn("Failed to remove partially uploaded image", "key", key, "error", err)
		}
	}
}

// Validate checks the content type and size, sniffing the type when the
// client did not send one.
func (u *Uploader) Validate(file *board.ImageFile) error {
	if file.ContentType == "" || file.ContentType == "application/octet-stream" {
		file.ContentType = http.DetectContentType(file.Data)
	}
	if !slices.Contains(u.config.AllowedTypes, file.ContentType) {
		return board.NewValidationError("images",
			fmt.Sprintf("unsupported file type %s, allowed types: %s", file.ContentType, strings.Join(u.config.AllowedTypes, ", ")))
	}
	if int64(len(file.Data)) > u.config.MaxSize {
		return board.NewValidationError("images",
			fmt.Sprintf("file %s is too large, maximum size is %.1fMB", file.Filename, float64(u.config.MaxSize)/1024/1024))
	}
	if len(file.Data) == 0 {
		return board.NewValidationError("images", fmt.Sprintf("file %s is empty", file.Filename))
	}
	return nil
}

// Optimize re-encodes data as JPEG, flattened onto white and scaled down to
// MaxDimension. When the image cannot be decoded or encoded the input is
// returned unchanged.
func (u *Uploader) Optimize(data []byte, mimeType string) ([]byte, string) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		u.logger.Warn("Image optimization skipped", "mime_type", mimeType, "error", err)
		return data, mimeType
	}

	dst := flatten(src, u.config.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: u.config.Quality}); err != nil {
		u.logger.Warn("Image optimization skipped", "mime_type", mimeType, "error", err)
		return data, mimeType
	}
	return buf.Bytes(), "image/jpeg"
}

// flatten draws src on a white canvas no larger than maxDim on either side.
func flatten(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	nw, nh := w, h
	if w > maxDim || h > maxDim {
		if w >= h {
			nw = maxDim
			nh = max(1, int(float64(h)*float64(maxDim)/float64(w)))
		} else {
			nh = maxDim
			nw = max(1, int(float64(w)*float64(maxDim)/float64(h)))
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	if nw == w && nh == h {
		imagedraw.Draw(dst, dst.Bounds(), src, b.Min, imagedraw.Over)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	}
	return dst
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.]`)

// SafeFilename builds "{basename}-{YYYYmmdd-HHMMSS}-{8 hex}.{ext}" where
// basename keeps only ASCII letters, digits and dots, truncated to 50.
func SafeFilename(original, ext string, now time.Time) string {
	base := strings.TrimSuffix(path.Base(original), path.Ext(original))
	if original == "" {
		base = ""
	}
	base = unsafeChars.ReplaceAllString(base, "")
	if len(base) > 50 {
		base = base[:50]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s.%s", base, now.Format("20060102-150405"), suffix, ext)
}

func extensionFor(mimeType, filename string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	}
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), "."); ext != "" {
		return ext
	}
	return "bin"
}

var _ board.ImageUploader = (*Uploader)(nil)
