package media_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/media"
	"github.com/tendant/simple-board/pkg/board/storage/memory"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// flakyStore fails the upload with the given 1-based index.
type flakyStore struct {
	*memory.Backend
	failAt int
	calls  int
}

func (s *flakyStore) Upload(ctx context.Context, r io.Reader, params board.UploadParams) error {
	s.calls++
	if s.calls == s.failAt {
		return errors.New("connection reset")
	}
	return s.Backend.Upload(ctx, r, params)
}

func TestUploader_UploadImages(t *testing.T) {
	store := memory.New("https://cdn.example.com")
	clock := func() time.Time { return time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC) }
	uploader := media.NewUploader(store, media.Config{}, media.WithClock(clock))

	files := []board.ImageFile{
		{Filename: "first photo!.png", ContentType: "image/png", Data: pngBytes(t, 10, 10, color.NRGBA{R: 255, A: 255})},
		{Filename: "second.png", ContentType: "image/png", Data: pngBytes(t, 20, 10, color.NRGBA{B: 255, A: 255})},
	}

	urls, err := uploader.UploadImages(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, urls, 2)

	assert.True(t, strings.HasPrefix(urls[0], "https://cdn.example.com/images/firstphoto-20240501-130405-"))
	assert.True(t, strings.HasSuffix(urls[0], ".jpg"))
	assert.True(t, strings.HasPrefix(urls[1], "https://cdn.example.com/images/second-20240501-130405-"))

	key := strings.TrimPrefix(urls[0], "https://cdn.example.com/")
	obj, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", obj.MimeType)
}

func TestUploader_Validation(t *testing.T) {
	store := memory.New("")
	uploader := media.NewUploader(store, media.Config{MaxSize: 1024})
	ctx := context.Background()

	t.Run("unsupported type", func(t *testing.T) {
		_, err := uploader.UploadImages(ctx, []board.ImageFile{{Filename: "a.txt", ContentType: "text/plain", Data: []byte("hi")}})
		assert.ErrorIs(t, err, board.ErrValidation)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := uploader.UploadImages(ctx, []board.ImageFile{{Filename: "a.png", ContentType: "image/png", Data: make([]byte, 2048)}})
		assert.ErrorIs(t, err, board.ErrValidation)
	})

	t.Run("nothing stored when a later file is invalid", func(t *testing.T) {
		_, err := uploader.UploadImages(ctx, []board.ImageFile{
			{Filename: "ok.png", ContentType: "image/png", Data: pngBytes(t, 2, 2, color.White)},
			{Filename: "bad.txt", ContentType: "text/plain", Data: []byte("x")},
		})
		assert.ErrorIs(t, err, board.ErrValidation)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("content type is sniffed when missing", func(t *testing.T) {
		file := board.ImageFile{Filename: "a", Data: pngBytes(t, 2, 2, color.White)}
		require.NoError(t, uploader.Validate(&file))
		assert.Equal(t, "image/png", file.ContentType)
	})
}

func TestUploader_CleansUpOnFailure(t *testing.T) {
	store := &flakyStore{Backend: memory.New(""), failAt: 2}
	uploader := media.NewUploader(store, media.Config{})

	files := []board.ImageFile{
		{Filename: "a.png", ContentType: "image/png", Data: pngBytes(t, 2, 2, color.White)},
		{Filename: "b.png", ContentType: "image/png", Data: pngBytes(t, 2, 2, color.White)},
	}
	_, err := uploader.UploadImages(context.Background(), files)
	require.Error(t, err)
	assert.ErrorIs(t, err, board.ErrUpstream)
	assert.Equal(t, 0, store.Len())
}

func TestUploader_DiscardImages(t *testing.T) {
	store := memory.New("https://cdn.example.com")
	uploader := media.NewUploader(store, media.Config{})
	ctx := context.Background()

	urls, err := uploader.UploadImages(ctx, []board.ImageFile{
		{Filename: "a.png", ContentType: "image/png", Data: pngBytes(t, 2, 2, color.White)},
		{Filename: "b.png", ContentType: "image/png", Data: pngBytes(t, 2, 2, color.White)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	uploader.DiscardImages(ctx, append([]string{"https://elsewhere.example.com/images/x.png"}, urls...))
	assert.Equal(t, 0, store.Len())
}

func TestUploader_Optimize(t *testing.T) {
	uploader := media.NewUploader(memory.New(""), media.Config{MaxDimension: 100})

	t.Run("downscales and flattens transparency onto white", func(t *testing.T) {
		data := pngBytes(t, 400, 200, color.NRGBA{})
		out, mimeType := uploader.Optimize(data, "image/png")
		assert.Equal(t, "image/jpeg", mimeType)

		img, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 100, img.Bounds().Dx())
		assert.Equal(t, 50, img.Bounds().Dy())

		r, g, b, _ := img.At(50, 25).RGBA()
		assert.Greater(t, r>>8, uint32(240))
		assert.Greater(t, g>>8, uint32(240))
		assert.Greater(t, b>>8, uint32(240))
	})

	t.Run("undecodable input is kept", func(t *testing.T) {
		data := []byte("not really a png")
		out, mimeType := uploader.Optimize(data, "image/png")
		assert.Equal(t, data, out)
		assert.Equal(t, "image/png", mimeType)
	})
}

func TestSafeFilename(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	name := media.SafeFilename("../우리 사진 (1).PNG", "jpg", now)
	assert.Regexp(t, `^1-20240102-030405-[0-9a-f]{8}\.jpg$`, name)

	long := media.SafeFilename(strings.Repeat("a", 80)+".png", "png", now)
	assert.True(t, strings.HasPrefix(long, strings.Repeat("a", 50)+"-20240102"))
}
