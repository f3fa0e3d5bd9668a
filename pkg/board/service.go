package board

import "context"

// Service defines the main interface for the content board
type Service interface {
	// CreateContent validates the request, uploads attached files and stores
	// a new content under the next post number
	CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error)

	// GetContent returns the active content with the given post number
	GetContent(ctx context.Context, postNumber int64) (*Content, error)

	// GetContentDetail returns the content with the given post number in any state
	GetContentDetail(ctx context.Context, postNumber int64) (*Content, error)

	// ListContents returns a page of active contents, newest first
	ListContents(ctx context.Context, req ListContentRequest) (*ContentPage, error)

	// UpdateContent merges the non-empty fields of req into the active content
	UpdateContent(ctx context.Context, postNumber int64, req UpdateContentRequest) (*Content, error)

	// DeleteContent soft deletes the active content
	DeleteContent(ctx context.Context, postNumber int64) error
}
