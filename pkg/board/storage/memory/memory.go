package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/tendant/simple-board/pkg/board"
)

// DefaultURLPrefix is used when no public prefix is configured
const DefaultURLPrefix = "memory://"

// Object is a stored blob with its content type
type Object struct {
	Data     []byte
	MimeType string
}

// Backend is an in-memory implementation of the board.BlobStore interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string]Object
	urlPrefix string
}

// New creates a new in-memory storage backend
func New(urlPrefix string) *Backend {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	return &Backend{
		objects:   make(map[string]Object),
		urlPrefix: urlPrefix,
	}
}

// Upload stores the reader's content under params.ObjectKey
func (b *Backend) Upload(ctx context.Context, reader io.Reader, params board.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = Object{Data: data, MimeType: mimeType}
	return nil
}

// PublicURL joins the prefix and the key
func (b *Backend) PublicURL(objectKey string) string {
	if strings.HasSuffix(b.urlPrefix, "/") {
		return b.urlPrefix + objectKey
	}
	return b.urlPrefix + "/" + objectKey
}

// Get returns a stored object
func (b *Backend) Get(objectKey string) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[objectKey]
	if !ok {
		return Object{}, false
	}
	return Object{Data: bytes.Clone(obj.Data), MimeType: obj.MimeType}, true
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return errors.New("object not found")
	}

	delete(b.objects, objectKey)
	return nil
}

var _ board.BlobStore = (*Backend)(nil)
