// Package redis stores sequence counters in Redis using optimistic
// WATCH/MULTI transactions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tendant/simple-board/pkg/board"
)

// DefaultKeyPrefix namespaces counter keys.
const DefaultKeyPrefix = "board:counter:"

// Config holds connection settings for the counter store
type Config struct {
	URL       string
	KeyPrefix string
}

// SequenceStore implements board.SequenceStore on Redis string keys.
type SequenceStore struct {
	client goredis.UniversalClient
	prefix string
}

// New connects to the Redis server at cfg.URL
func New(cfg Config) (*SequenceStore, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = 2
	return NewWithClient(goredis.NewClient(opts), cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client goredis.UniversalClient, prefix string) *SequenceStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SequenceStore{client: client, prefix: prefix}
}

// Ping checks connectivity
func (s *SequenceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client
func (s *SequenceStore) Close() error {
	return s.client.Close()
}

// Increment watches the counter key, reads it and writes the next value in a
// MULTI block. A concurrent write to the key aborts the transaction.
func (s *SequenceStore) Increment(ctx context.Context, name string) (int64, error) {
	key := s.prefix + name
	var next int64

	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, key).Int64()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		next = current + 1

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return 0, classify(err)
	}
	return next, nil
}

// Current returns the last value issued for name, zero if none.
func (s *SequenceStore) Current(ctx context.Context, name string) (int64, error) {
	current, err := s.client.Get(ctx, s.prefix+name).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, classify(err)
	}
	return current, nil
}

func classify(err error) error {
	if errors.Is(err, goredis.TxFailedErr) {
		return fmt.Errorf("counter watch: %w", board.ErrSequenceConflict)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("counter: %w: %w", board.ErrTransient, err)
	}
	return fmt.Errorf("counter: %w", err)
}

var _ board.SequenceStore = (*SequenceStore)(nil)
