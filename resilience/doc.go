// Package resilience provides the bounded-retry primitives used by the
// refresh workers and the caption batcher.
//
// # Patterns
//
//   - Retry: fixed-count, fixed-delay retry. There is no exponential backoff
//     and no jitter; every wait between attempts is the same.
//
//   - RunWithin: bounds the duration of a single attempt.
//
//   - Executor: composes Retry (outer) with RunWithin (inner) so every attempt
//     gets its own deadline.
//
//   - RunChunked: runs a set of jobs in fixed-size batches where batch N+1
//     starts only after every job in batch N has returned.
//
// # Usage
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts: 3,
//	        Delay:       20 * time.Second,
//	    })),
//	    resilience.WithTimeout(2*time.Minute),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context, attempt int) error {
//	    return callUpstream(ctx)
//	})
package resilience
