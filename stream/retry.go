package stream

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExhausted is returned by RetryPolicy.Do when every attempt failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// RetryPolicy bounds loops that wait on something outside the engine, such as
// a player becoming ready to seek or a live stream starting. The resolver
// itself answers once.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Do calls fn until it returns nil, the attempts run out, or ctx ends. The last
// error from fn is joined with ErrAttemptsExhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		if last = fn(ctx); last == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Interval):
		}
	}
	return errors.Join(ErrAttemptsExhausted, last)
}
