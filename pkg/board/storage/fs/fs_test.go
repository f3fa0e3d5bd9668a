package fs_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/storage/fs"
)

func TestFSBackend(t *testing.T) {
	dir := t.TempDir()
	backend, err := fs.New(fs.Config{BaseDir: dir, URLPrefix: "http://localhost:8000/static/"})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Upload", func(t *testing.T) {
		err := backend.Upload(ctx, bytes.NewReader([]byte("data")), board.UploadParams{ObjectKey: "images/x.jpg"})
		require.NoError(t, err)

		content, err := os.ReadFile(filepath.Join(dir, "images", "x.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "data", string(content))
	})

	t.Run("keys cannot escape the base directory", func(t *testing.T) {
		err := backend.Upload(ctx, bytes.NewReader([]byte("data")), board.UploadParams{ObjectKey: "../../escape.txt"})
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(dir, "escape.txt"))
		assert.NoError(t, err)
	})

	t.Run("PublicURL", func(t *testing.T) {
		assert.Equal(t, "http://localhost:8000/static/images/x.jpg", backend.PublicURL("images/x.jpg"))
	})

	t.Run("Handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		backend.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/x.jpg", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "data", rec.Body.String())
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "images/x.jpg"))
		assert.Error(t, backend.Delete(ctx, "images/x.jpg"))
	})

	t.Run("requires base dir", func(t *testing.T) {
		_, err := fs.New(fs.Config{})
		assert.Error(t, err)
	})
}
