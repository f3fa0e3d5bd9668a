package board

import (
	"context"
	"io"
)

// SequenceStore holds one counter per sequence name.
type SequenceStore interface {
	// Increment runs a single transactional read-modify-write on the counter
	// for name, creating it at zero when absent, and returns the new value.
	// Lost races are reported as ErrSequenceConflict, recoverable store
	// failures as ErrTransient.
	Increment(ctx context.Context, name string) (int64, error)
}

// ContentStore persists contents.
type ContentStore interface {
	// InsertContent stores a new document, assigning DocumentID when empty
	InsertContent(ctx context.Context, content *Content) error

	// FindContent returns the first content with the given post number whose
	// state matches. An empty state matches any state.
	FindContent(ctx context.Context, postNumber int64, state DeletionState) (*Content, error)

	// UpdateContent applies a partial update to the document
	UpdateContent(ctx context.Context, documentID string, patch ContentPatch) error

	// CountContents counts every content matching the filter
	CountContents(ctx context.Context, filter ContentFilter) (int, error)

	// ListContents returns matching contents ordered by post number, newest first
	ListContents(ctx context.Context, filter ContentFilter, page Pagination) ([]*Content, error)
}

// UserStore persists user profile documents.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, uid string) (*User, error)
	UpdateUser(ctx context.Context, uid string, patch UserPatch) error
}

// Repository defines the interface for content and user persistence
type Repository interface {
	ContentStore
	UserStore
}

// BlobStore defines the interface for object storage backends
type BlobStore interface {
	// Upload stores the object under params.ObjectKey
	Upload(ctx context.Context, reader io.Reader, params UploadParams) error

	// PublicURL returns the URL clients use to fetch the object
	PublicURL(objectKey string) string

	// Delete removes the object
	Delete(ctx context.Context, objectKey string) error
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
	Size      int64
}

// ImageUploader stores image files and returns their public URLs in order.
type ImageUploader interface {
	UploadImages(ctx context.Context, files []ImageFile) ([]string, error)

	// DiscardImages removes objects previously returned by UploadImages.
	// Failures are logged, not returned.
	DiscardImages(ctx context.Context, urls []string)
}
