package refresh

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/promptrelay/observe"
	"github.com/jonwraymond/promptrelay/resilience"
	"github.com/jonwraymond/promptrelay/upstream"
)

// Caller performs one non-streaming completion. *upstream.Client satisfies it.
type Caller interface {
	Complete(ctx context.Context, req upstream.ChatRequest) (*upstream.ChatResponse, error)
}

// CompleteFunc is one instrumented upstream call.
type CompleteFunc func(ctx context.Context, req upstream.ChatRequest) (*upstream.ChatResponse, error)

// Exchange turns a request into reply text. It may call complete more than
// once, as the tool-call echo does.
type Exchange func(ctx context.Context, complete CompleteFunc, req upstream.ChatRequest) (string, error)

// PromptBuilder builds the request for one attempt.
type PromptBuilder func(ctx context.Context, attempt int) (upstream.ChatRequest, error)

// Validator returns nil when an extracted payload is acceptable.
type Validator func(payload string) error

// Outcome is the result of one Refresh run.
type Outcome struct {
	OK       bool
	Value    string // payload on success, sentinel otherwise
	Attempts int
	Err      error
}

// Worker runs the build, call, extract and validate loop with bounded
// fixed-delay retries.
type Worker struct {
	name     string
	caller   Caller
	marker   *regexp.Regexp
	delay    time.Duration
	timeout  time.Duration
	exchange Exchange
	sentinel func(error) string
	inst     *observe.Instrument
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithMarker extracts the payload from "[<name>:<payload>]" in the reply.
// An empty name takes the whole trimmed reply.
func WithMarker(name string) WorkerOption {
	return func(w *Worker) {
		w.marker = markerPattern(name)
	}
}

// WithDelay sets the fixed wait between attempts.
func WithDelay(d time.Duration) WorkerOption {
	return func(w *Worker) { w.delay = d }
}

// WithAttemptTimeout bounds each attempt. Zero leaves attempts unbounded.
func WithAttemptTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) { w.timeout = d }
}

// WithExchange replaces the single-call exchange.
func WithExchange(x Exchange) WorkerOption {
	return func(w *Worker) {
		if x != nil {
			w.exchange = x
		}
	}
}

// WithSentinel sets the text produced when every attempt fails.
func WithSentinel(fn func(error) string) WorkerOption {
	return func(w *Worker) {
		if fn != nil {
			w.sentinel = fn
		}
	}
}

// WithInstrument sets the telemetry wrapper for upstream calls.
func WithInstrument(inst *observe.Instrument) WorkerOption {
	return func(w *Worker) {
		if inst != nil {
			w.inst = inst
		}
	}
}

// NewWorker returns a Worker named for its telemetry component.
func NewWorker(name string, caller Caller, opts ...WorkerOption) *Worker {
	w := &Worker{
		name:     name,
		caller:   caller,
		exchange: singleCall,
		sentinel: func(err error) string { return name + " refresh failed: " + err.Error() },
		inst:     observe.NopInstrument(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Refresh makes at most maxAttempts attempts, waiting the fixed delay
// between them. Transport, status, extraction and validation failures are
// all retried. The first accepted payload wins.
func (w *Worker) Refresh(ctx context.Context, build PromptBuilder, accept Validator, maxAttempts int) Outcome {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	logger := w.inst.Logger().With(observe.Op{Component: w.name, Name: "refresh"})

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: maxAttempts,
		Delay:       w.delay,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn(ctx, "refresh attempt failed",
				observe.F("attempt", attempt+1),
				observe.F("max_attempts", maxAttempts),
				observe.F("retry_in", delay.String()),
				observe.F("error", err),
			)
		},
	})
	exec := resilience.NewExecutor(resilience.WithRetry(retry), resilience.WithTimeout(w.timeout))

	var (
		attempts int
		value    string
	)
	err := exec.Execute(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt + 1

		req, err := build(ctx, attempt)
		if err != nil {
			return errors.Wrap(err, "build prompt")
		}
		text, err := w.exchange(ctx, w.complete, req)
		if err != nil {
			return err
		}
		payload, err := w.extract(text)
		if err != nil {
			return err
		}
		if accept != nil {
			if err := accept(payload); err != nil {
				return fmt.Errorf("%w: %w", ErrRejected, err)
			}
		}
		value = payload
		return nil
	})

	op := observe.Op{Component: w.name, Name: "refresh"}
	w.inst.Outcome(ctx, op, attempts, err == nil)
	if err != nil {
		logger.Error(ctx, "refresh exhausted", observe.F("attempts", attempts), observe.F("error", err))
		return Outcome{Value: w.sentinel(err), Attempts: attempts, Err: err}
	}
	return Outcome{OK: true, Value: value, Attempts: attempts}
}

func (w *Worker) complete(ctx context.Context, req upstream.ChatRequest) (*upstream.ChatResponse, error) {
	var resp *upstream.ChatResponse
	op := observe.Op{Component: w.name, Name: "complete", Model: req.Model}
	err := w.inst.Call(ctx, op, func(ctx context.Context) error {
		var err error
		resp, err = w.caller.Complete(ctx, req)
		return err
	})
	return resp, err
}

func (w *Worker) extract(text string) (string, error) {
	if w.marker == nil {
		payload := strings.TrimSpace(text)
		if payload == "" {
			return "", errors.Wrap(ErrNoMarker, "empty reply")
		}
		return payload, nil
	}
	m := w.marker.FindStringSubmatch(text)
	if m == nil {
		return "", errors.WithDetailf(ErrNoMarker, "reply: %.200s", text)
	}
	return strings.TrimSpace(m[1]), nil
}

func singleCall(ctx context.Context, complete CompleteFunc, req upstream.ChatRequest) (string, error) {
	resp, err := complete(ctx, req)
	if err != nil {
		return "", err
	}
	choice, err := resp.First()
	if err != nil {
		return "", err
	}
	if choice.Message == nil {
		return "", errors.Wrap(upstream.ErrNoChoices, "choice has no message")
	}
	return choice.Message.Content.String(), nil
}

func markerPattern(name string) *regexp.Regexp {
	if name == "" {
		return nil
	}
	return regexp.MustCompile(`(?s)\[` + regexp.QuoteMeta(name) + `:(.*?)\]`)
}

// MinLength returns a Validator requiring at least n runes after trimming.
func MinLength(n int) Validator {
	return func(payload string) error {
		trimmed := strings.TrimSpace(payload)
		if trimmed == "" {
			return errors.New("empty payload")
		}
		if got := len([]rune(trimmed)); got < n {
			return errors.Newf("payload has %d runes, need %d", got, n)
		}
		return nil
	}
}
