package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-board/pkg/board"
)

// SequenceStore implements board.SequenceStore with a mutex-guarded map.
type SequenceStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewSequenceStore creates an empty in-memory counter store
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{counters: make(map[string]int64)}
}

func (s *SequenceStore) Increment(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[name]++
	return s.counters[name], nil
}

// Current returns the last value issued for name, zero if none.
func (s *SequenceStore) Current(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}

var _ board.SequenceStore = (*SequenceStore)(nil)
