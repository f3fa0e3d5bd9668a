package redis_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/repo/redis"
)

func setupStore(t *testing.T) *redis.SequenceStore {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}
	store, err := redis.New(redis.Config{
		URL:       url,
		KeyPrefix: "board_test:" + uuid.NewString()[:8] + ":",
	})
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := redis.New(redis.Config{})
	assert.Error(t, err)

	_, err = redis.New(redis.Config{URL: "not a url"})
	assert.Error(t, err)
}

func TestSequenceStore_Increment(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first, err := store.Increment(ctx, board.SequenceContents)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	other, err := store.Increment(ctx, board.SequenceUsers)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)

	current, err := store.Current(ctx, board.SequenceContents)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	current, err = store.Current(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)
}

func TestSequenceStore_ConcurrentAllocation(t *testing.T) {
	store := setupStore(t)
	alloc := board.NewAllocator(store)
	ctx := context.Background()

	const n = 5
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := alloc.Next(ctx, board.SequenceContents)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
