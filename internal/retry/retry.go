// Package retry wraps startup connections with exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultAttempts  = 4
	DefaultBaseDelay = time.Second
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

// Do calls fn until it succeeds, returns a Permanent error, the context ends or the
// attempts run out. The delay doubles after every failure.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= attempts {
			return err
		}

		slog.WarnContext(ctx, "retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}
}
