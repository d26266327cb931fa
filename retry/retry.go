package retry

import (
	"context"
	"time"

	"searchlens/pkg/errkind"

	"go.uber.org/zap"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 1000 * time.Millisecond
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy bounds how often an operation is attempted. MaxRetries counts
// total attempts, including the first one.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	NonRetryable func(error) bool
	Sleep        Sleeper
	Logger       *zap.Logger
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		NonRetryable: func(err error) bool { return !errkind.Retryable(err) },
	}
}

// Backoff returns the delay before attempt+1: InitialDelay * 2^(attempt-1).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.InitialDelay << (attempt - 1)
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// context ends or MaxRetries attempts were made. Exhaustion is reported as
// an errkind.RetriesExhausted error wrapping the last failure.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	maxRetries := p.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.NonRetryable != nil && p.NonRetryable(err) {
			logger.Debug("retry_aborted",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if attempt == maxRetries {
			break
		}

		delay := p.Backoff(attempt)
		logger.Info("retry_scheduled",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &errkind.Error{
		Kind:     errkind.RetriesExhausted,
		Op:       "retry",
		Attempts: maxRetries,
		Err:      lastErr,
	}
}

// Sleep waits on a timer, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
