package board

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds the attempts an Allocator makes for one value.
type RetryPolicy struct {
	// MaxAttempts is the total number of transactions tried, including the first
	MaxAttempts int
	// BaseDelay is the backoff before the second attempt; it doubles after each failure
	BaseDelay time.Duration
	// AttemptTimeout limits a single transaction; zero leaves it to the caller's context
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy is five attempts starting at 100ms.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    5,
	BaseDelay:      100 * time.Millisecond,
	AttemptTimeout: 5 * time.Second,
}

// Backoff returns the delay before the attempt following the given zero-based
// failed attempt, scaled by a jitter factor in [0, 1).
func (p RetryPolicy) Backoff(attempt int, jitter float64) time.Duration {
	d := p.BaseDelay << attempt
	return time.Duration(float64(d) * (0.5 + jitter))
}

// Allocator issues strictly increasing values per sequence name.
type Allocator struct {
	store  SequenceStore
	policy RetryPolicy
	logger *slog.Logger
	jitter func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// AllocatorOption configures an Allocator.
type AllocatorOption func(*Allocator)

// WithAllocatorPolicy overrides the retry policy
func WithAllocatorPolicy(p RetryPolicy) AllocatorOption {
	return func(a *Allocator) {
		if p.MaxAttempts > 0 {
			a.policy = p
		}
	}
}

// WithAllocatorLogger sets the logger used for retries and failures
func WithAllocatorLogger(l *slog.Logger) AllocatorOption {
	return func(a *Allocator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithAllocatorSleep replaces the backoff wait, mainly for tests
func WithAllocatorSleep(sleep func(ctx context.Context, d time.Duration) error) AllocatorOption {
	return func(a *Allocator) {
		a.sleep = sleep
	}
}

// NewAllocator creates an Allocator over store.
func NewAllocator(store SequenceStore, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		store:  store,
		policy: DefaultRetryPolicy,
		logger: slog.Default(),
		jitter: rand.Float64,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next allocates the next value for the named sequence.
// Every failure is returned as an *AllocationError.
func (a *Allocator) Next(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, &AllocationError{Sequence: name, Err: ErrInvalidSequenceName}
	}

	var lastErr error
	for attempt := 0; attempt < a.policy.MaxAttempts; attempt++ {
		next, err := a.attempt(ctx, name)
		if err == nil {
			return next, nil
		}
		lastErr = err

		if ctx.Err() != nil || !a.retriable(ctx, err) {
			a.logger.Error("sequence allocation failed",
				"sequence", name, "attempts", attempt+1, "error", err)
			return 0, &AllocationError{Sequence: name, Attempts: attempt + 1, Err: err}
		}
		if attempt == a.policy.MaxAttempts-1 {
			break
		}

		delay := a.policy.Backoff(attempt, a.jitter())
		a.logger.Warn("sequence transaction failed, retrying",
			"sequence", name, "attempt", attempt+1, "delay", delay, "error", err)
		if err := a.sleep(ctx, delay); err != nil {
			return 0, &AllocationError{Sequence: name, Attempts: attempt + 1, Err: err}
		}
	}

	a.logger.Error("sequence allocation retries exhausted",
		"sequence", name, "attempts", a.policy.MaxAttempts, "error", lastErr)
	return 0, &AllocationError{Sequence: name, Attempts: a.policy.MaxAttempts, Err: lastErr}
}

func (a *Allocator) attempt(ctx context.Context, name string) (int64, error) {
	if a.policy.AttemptTimeout <= 0 {
		return a.store.Increment(ctx, name)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, a.policy.AttemptTimeout)
	defer cancel()
	return a.store.Increment(attemptCtx, name)
}

// retriable treats a per-attempt timeout as transient as long as the
// caller's own context is still live.
func (a *Allocator) retriable(ctx context.Context, err error) bool {
	if IsRetriable(err) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
