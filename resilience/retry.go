package resilience

import (
	"context"
	"time"
)

// AttemptFunc is one try of a retried operation. attempt counts from zero.
type AttemptFunc func(ctx context.Context, attempt int) error

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// Delay is the fixed wait between attempts. Zero retries immediately.
	Delay time.Duration

	// RetryIf determines if an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each wait, with the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry implements fixed-count, fixed-delay retry.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Delay < 0 {
		config.Delay = 0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{config: config}
}

// Execute runs op until it succeeds, RetryIf rejects its error, or
// MaxAttempts calls have been made. No call is made after the last attempt.
// When every attempt fails the last error is returned wrapped so that it
// also matches ErrMaxRetriesExceeded. Its message is unchanged.
func (r *Retry) Execute(ctx context.Context, op AttemptFunc) error {
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt+1 >= r.config.MaxAttempts {
			break
		}

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, r.config.Delay)
		}
		if err := sleep(ctx, r.config.Delay); err != nil {
			return err
		}
	}

	return &exhaustedError{last: lastErr}
}

// exhaustedError reports the last attempt's error and matches both it and
// ErrMaxRetriesExceeded.
type exhaustedError struct {
	last error
}

func (e *exhaustedError) Error() string { return e.last.Error() }

func (e *exhaustedError) Unwrap() []error {
	return []error{e.last, ErrMaxRetriesExceeded}
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
