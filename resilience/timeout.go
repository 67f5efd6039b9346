package resilience

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// RunWithin runs fn with a deadline of d and returns once fn has. fn must
// honor ctx. When the deadline passed while fn ran, the result is ErrTimeout
// carrying fn's error as detail. A cancelled parent returns fn's error.
func RunWithin(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(tctx)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return errors.WithDetailf(errors.Wrapf(ErrTimeout, "after %s", d), "attempt error: %v", err)
	}
	return err
}

// bounded gives every attempt of op its own deadline.
func bounded(d time.Duration, op AttemptFunc) AttemptFunc {
	return func(ctx context.Context, attempt int) error {
		return RunWithin(ctx, d, func(ctx context.Context) error {
			return op(ctx, attempt)
		})
	}
}
