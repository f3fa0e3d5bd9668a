package board_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/repo/memory"
)

// scriptedStore fails with the queued errors before delegating to a real counter.
type scriptedStore struct {
	mu       sync.Mutex
	failures []error
	calls    int
	next     *memory.SequenceStore
}

func (s *scriptedStore) Increment(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	s.calls++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		return 0, err
	}
	s.mu.Unlock()
	return s.next.Increment(ctx, name)
}

func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
}

func TestAllocator_ConcurrentValuesAreUnique(t *testing.T) {
	alloc := board.NewAllocator(memory.NewSequenceStore())
	ctx := context.Background()

	const n = 40
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = make(map[int64]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := alloc.Next(ctx, board.SequenceContents)
			require.NoError(t, err)
			mu.Lock()
			got[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, got, n)
	for i := int64(1); i <= n; i++ {
		assert.True(t, got[i], "missing value %d", i)
	}
}

func TestAllocator_SequencesAreIndependent(t *testing.T) {
	alloc := board.NewAllocator(memory.NewSequenceStore())
	ctx := context.Background()

	a, err := alloc.Next(ctx, board.SequenceContents)
	require.NoError(t, err)
	b, err := alloc.Next(ctx, board.SequenceUsers)
	require.NoError(t, err)
	c, err := alloc.Next(ctx, board.SequenceContents)
	require.NoError(t, err)

	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(1), b)
	assert.Equal(t, int64(2), c)
}

func TestAllocator_RetriesConflicts(t *testing.T) {
	store := &scriptedStore{
		failures: []error{board.ErrSequenceConflict, board.ErrTransient},
		next:     memory.NewSequenceStore(),
	}
	var delays []time.Duration
	alloc := board.NewAllocator(store, board.WithAllocatorSleep(noSleep(&delays)))

	v, err := alloc.Next(context.Background(), board.SequenceContents)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, 3, store.calls)
	require.Len(t, delays, 2)
	assert.GreaterOrEqual(t, delays[0], 50*time.Millisecond)
	assert.Less(t, delays[0], 150*time.Millisecond)
	assert.GreaterOrEqual(t, delays[1], 100*time.Millisecond)
	assert.Less(t, delays[1], 300*time.Millisecond)
}

func TestAllocator_ExhaustsRetries(t *testing.T) {
	store := &scriptedStore{next: memory.NewSequenceStore()}
	for i := 0; i < 10; i++ {
		store.failures = append(store.failures, board.ErrSequenceConflict)
	}
	alloc := board.NewAllocator(store, board.WithAllocatorSleep(noSleep(nil)))

	_, err := alloc.Next(context.Background(), board.SequenceContents)
	require.Error(t, err)
	assert.ErrorIs(t, err, board.ErrAllocationFailed)
	assert.ErrorIs(t, err, board.ErrSequenceConflict)

	var allocErr *board.AllocationError
	require.True(t, errors.As(err, &allocErr))
	assert.Equal(t, 5, allocErr.Attempts)
	assert.Equal(t, 5, store.calls)
}

func TestAllocator_NonRetriableFailsImmediately(t *testing.T) {
	boom := errors.New("permission denied")
	store := &scriptedStore{failures: []error{boom}, next: memory.NewSequenceStore()}
	alloc := board.NewAllocator(store, board.WithAllocatorSleep(noSleep(nil)))

	_, err := alloc.Next(context.Background(), board.SequenceContents)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, board.ErrAllocationFailed)
	assert.Equal(t, 1, store.calls)
}

func TestAllocator_EmptySequenceName(t *testing.T) {
	store := &scriptedStore{next: memory.NewSequenceStore()}
	alloc := board.NewAllocator(store)

	_, err := alloc.Next(context.Background(), "")
	assert.ErrorIs(t, err, board.ErrInvalidSequenceName)
	assert.ErrorIs(t, err, board.ErrAllocationFailed)
	assert.Equal(t, 0, store.calls)
}

func TestAllocator_CancelledContext(t *testing.T) {
	store := &scriptedStore{next: memory.NewSequenceStore()}
	alloc := board.NewAllocator(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := alloc.Next(ctx, board.SequenceContents)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), store.next.Current(board.SequenceContents))
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := board.DefaultRetryPolicy
	assert.Equal(t, 50*time.Millisecond, p.Backoff(0, 0))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(0, 0.5))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(1, 0.5))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3, 0))
	assert.Less(t, p.Backoff(3, 0.999), 1200*time.Millisecond)
}
