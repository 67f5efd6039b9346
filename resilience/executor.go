package resilience

import (
	"context"
	"time"
)

// Executor composes retry and per-attempt timeout.
type Executor struct {
	retry   *Retry
	timeout time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout bounds each attempt. A zero duration leaves attempts unbounded.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

// Execute runs op through the configured patterns. Retry is outermost and
// the timeout applies to each attempt separately. Without a retry, op runs
// once with attempt zero.
func (e *Executor) Execute(ctx context.Context, op AttemptFunc) error {
	execute := op

	if e.timeout > 0 {
		execute = bounded(e.timeout, execute)
	}

	if e.retry != nil {
		return e.retry.Execute(ctx, execute)
	}
	return execute(ctx, 0)
}
