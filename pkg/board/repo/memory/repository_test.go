package memory_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/repo/memory"
)

func newContent(postNumber int64, category board.Category) *board.Content {
	now := time.Now().Truncate(time.Microsecond)
	return &board.Content{
		PostNumber: postNumber,
		Category:   category,
		Title:      fmt.Sprintf("Post %d", postNumber),
		Contents:   "body",
		Images:     []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
		State:      board.StateActive,
	}
}

func TestMemoryRepository_ContentOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	t.Run("InsertContent assigns document id", func(t *testing.T) {
		content := newContent(1, board.CategoryNotice)
		err := repo.InsertContent(ctx, content)
		require.NoError(t, err)
		assert.NotEmpty(t, content.DocumentID)
	})

	t.Run("InsertContent rejects duplicate post number", func(t *testing.T) {
		err := repo.InsertContent(ctx, newContent(1, board.CategoryNotice))
		assert.Error(t, err)
	})

	t.Run("FindContent", func(t *testing.T) {
		found, err := repo.FindContent(ctx, 1, board.StateActive)
		require.NoError(t, err)
		assert.Equal(t, int64(1), found.PostNumber)
		assert.Equal(t, "Post 1", found.Title)
	})

	t.Run("FindContent_NotFound", func(t *testing.T) {
		found, err := repo.FindContent(ctx, 999, board.StateActive)
		assert.Nil(t, found)
		assert.Equal(t, board.ErrContentNotFound, err)
	})

	t.Run("returned copies are isolated", func(t *testing.T) {
		found, err := repo.FindContent(ctx, 1, "")
		require.NoError(t, err)
		found.Title = "mutated"

		again, err := repo.FindContent(ctx, 1, "")
		require.NoError(t, err)
		assert.Equal(t, "Post 1", again.Title)
	})

	t.Run("UpdateContent applies only set fields", func(t *testing.T) {
		content := newContent(2, board.CategoryApply)
		require.NoError(t, repo.InsertContent(ctx, content))

		title := "New title"
		err := repo.UpdateContent(ctx, content.DocumentID, board.ContentPatch{Title: &title})
		require.NoError(t, err)

		updated, err := repo.FindContent(ctx, 2, board.StateActive)
		require.NoError(t, err)
		assert.Equal(t, "New title", updated.Title)
		assert.Equal(t, board.CategoryApply, updated.Category)
		assert.Equal(t, int64(2), updated.PostNumber)
	})

	t.Run("soft deleted content is hidden from active lookups", func(t *testing.T) {
		content := newContent(3, board.CategoryApply)
		require.NoError(t, repo.InsertContent(ctx, content))

		deleted := board.StateSoftDeleted
		require.NoError(t, repo.UpdateContent(ctx, content.DocumentID, board.ContentPatch{State: &deleted}))

		_, err := repo.FindContent(ctx, 3, board.StateActive)
		assert.Equal(t, board.ErrContentNotFound, err)

		found, err := repo.FindContent(ctx, 3, "")
		require.NoError(t, err)
		assert.True(t, found.IsDeleted())
	})

	t.Run("UpdateContent_NotFound", func(t *testing.T) {
		err := repo.UpdateContent(ctx, "missing", board.ContentPatch{})
		assert.Equal(t, board.ErrContentNotFound, err)
	})
}

func TestMemoryRepository_ListContents(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	for i := int64(1); i <= 15; i++ {
		require.NoError(t, repo.InsertContent(ctx, newContent(i, board.CategoryNotice)))
	}
	for i := int64(16); i <= 20; i++ {
		require.NoError(t, repo.InsertContent(ctx, newContent(i, board.CategoryApply)))
	}

	notices := board.ContentFilter{State: board.StateActive, Category: board.CategoryNotice}

	t.Run("CountContents", func(t *testing.T) {
		total, err := repo.CountContents(ctx, notices)
		require.NoError(t, err)
		assert.Equal(t, 15, total)

		all, err := repo.CountContents(ctx, board.ContentFilter{})
		require.NoError(t, err)
		assert.Equal(t, 20, all)
	})

	t.Run("first page is newest first", func(t *testing.T) {
		page, err := repo.ListContents(ctx, notices, board.Pagination{Offset: 0, Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 10)
		assert.Equal(t, int64(15), page[0].PostNumber)
		assert.Equal(t, int64(6), page[9].PostNumber)
	})

	t.Run("last page is short", func(t *testing.T) {
		page, err := repo.ListContents(ctx, notices, board.Pagination{Offset: 10, Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 5)
		assert.Equal(t, int64(1), page[4].PostNumber)
	})

	t.Run("offset past the end is empty", func(t *testing.T) {
		page, err := repo.ListContents(ctx, notices, board.Pagination{Offset: 100, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("huge limit does not overflow the end index", func(t *testing.T) {
		page, err := repo.ListContents(ctx, notices, board.Pagination{Offset: 5, Limit: math.MaxInt})
		require.NoError(t, err)
		assert.Len(t, page, 10)
	})

	t.Run("negative offset is rejected", func(t *testing.T) {
		_, err := repo.ListContents(ctx, notices, board.Pagination{Offset: -10, Limit: 10})
		assert.Error(t, err)
	})
}

func TestMemoryRepository_UserOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	user := &board.User{
		UID:      "uid-1",
		Email:    "a@example.com",
		Name:     "A",
		IsActive: true,
		State:    board.StateActive,
	}
	require.NoError(t, repo.CreateUser(ctx, user))

	t.Run("duplicate uid or email", func(t *testing.T) {
		assert.ErrorIs(t, repo.CreateUser(ctx, user), board.ErrUserExists)
		other := *user
		other.UID = "uid-2"
		assert.ErrorIs(t, repo.CreateUser(ctx, &other), board.ErrUserExists)
	})

	t.Run("GetUser", func(t *testing.T) {
		got, err := repo.GetUser(ctx, "uid-1")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", got.Email)
	})

	t.Run("UpdateUser then soft delete", func(t *testing.T) {
		admin := true
		require.NoError(t, repo.UpdateUser(ctx, "uid-1", board.UserPatch{IsAdmin: &admin}))
		got, err := repo.GetUser(ctx, "uid-1")
		require.NoError(t, err)
		assert.True(t, got.IsAdmin)

		deleted := board.StateSoftDeleted
		require.NoError(t, repo.UpdateUser(ctx, "uid-1", board.UserPatch{State: &deleted}))
		_, err = repo.GetUser(ctx, "uid-1")
		assert.Equal(t, board.ErrUserNotFound, err)
	})
}

func TestSequenceStore_ConcurrentIncrement(t *testing.T) {
	store := memory.NewSequenceStore()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	values := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.Increment(ctx, board.SequenceContents)
			assert.NoError(t, err)
			values <- v
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool)
	for v := range values {
		assert.False(t, seen[v], "duplicate value %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, int64(n), store.Current(board.SequenceContents))
	assert.Equal(t, int64(0), store.Current(board.SequenceUsers))
}
