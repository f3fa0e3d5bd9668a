package memory_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memory.New("")
	ctx := context.Background()

	t.Run("Upload and Get", func(t *testing.T) {
		err := backend.Upload(ctx, bytes.NewReader([]byte("hello")), board.UploadParams{
			ObjectKey: "images/a.jpg",
			MimeType:  "image/jpeg",
		})
		require.NoError(t, err)

		obj, ok := backend.Get("images/a.jpg")
		require.True(t, ok)
		assert.Equal(t, []byte("hello"), obj.Data)
		assert.Equal(t, "image/jpeg", obj.MimeType)
	})

	t.Run("PublicURL", func(t *testing.T) {
		assert.Equal(t, "memory://images/a.jpg", backend.PublicURL("images/a.jpg"))
		assert.Equal(t, "https://cdn.example.com/images/a.jpg",
			memory.New("https://cdn.example.com").PublicURL("images/a.jpg"))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "images/a.jpg"))
		_, ok := backend.Get("images/a.jpg")
		assert.False(t, ok)
		assert.Error(t, backend.Delete(ctx, "images/a.jpg"))
	})
}
