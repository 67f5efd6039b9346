package refresh

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/promptrelay/cache"
	"github.com/jonwraymond/promptrelay/observe"
	"github.com/jonwraymond/promptrelay/upstream"
)

const captionFailPrefix = "图片转译失败: "

// CaptionFailed is the description used after every attempt fails.
func CaptionFailed(err error) string {
	return captionFailPrefix + err.Error()
}

// CaptionConfig configures a Caption refresher.
type CaptionConfig struct {
	Model       string
	Prompt      string
	Marker      string // empty takes the whole reply
	MaxTokens   int
	MinLength   int
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// Caption describes inline images, once per distinct image.
type Caption struct {
	cfg    CaptionConfig
	worker *Worker
	filler *cache.Filler
	logger observe.Logger
}

// NewCaption returns a Caption refresher backed by filler.
func NewCaption(cfg CaptionConfig, caller Caller, filler *cache.Filler, inst *observe.Instrument) *Caption {
	if inst == nil {
		inst = observe.NopInstrument()
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = cache.DefaultMinLength
	}
	return &Caption{
		cfg: cfg,
		worker: NewWorker("caption", caller,
			WithMarker(cfg.Marker),
			WithDelay(cfg.RetryDelay),
			WithAttemptTimeout(cfg.Timeout),
			WithSentinel(CaptionFailed),
			WithInstrument(inst),
		),
		filler: filler,
		logger: inst.Logger().With(observe.Op{Component: "caption"}),
	}
}

// Describe returns a description of imageData, a data URL or bare base64
// payload. A cached description costs no upstream call. On failure the
// sentinel description is returned with the error and nothing is cached.
// A cache write failure returns the fresh description with the error.
func (c *Caption) Describe(ctx context.Context, imageData string) (string, error) {
	desc, hit, err := c.filler.GetOrFill(ctx, imageData, func(ctx context.Context) (string, error) {
		out := c.worker.Refresh(ctx, c.builder(imageData), MinLength(c.cfg.MinLength), c.cfg.MaxAttempts)
		if !out.OK {
			return out.Value, out.Err
		}
		return out.Value, nil
	})
	if hit {
		c.logger.Debug(ctx, "caption cache hit")
	}
	if err != nil && !errors.Is(err, cache.ErrRejected) {
		c.logger.Warn(ctx, "caption incomplete", observe.F("error", err))
	}
	return desc, err
}

func (c *Caption) builder(imageData string) PromptBuilder {
	return func(context.Context, int) (upstream.ChatRequest, error) {
		req := upstream.ChatRequest{
			Model: c.cfg.Model,
			Messages: []upstream.Message{{
				Role: upstream.RoleUser,
				Content: upstream.PartsContent(
					upstream.TextPart(c.cfg.Prompt),
					upstream.ImagePart(imageData),
				),
			}},
		}
		if c.cfg.MaxTokens > 0 {
			n := c.cfg.MaxTokens
			req.MaxTokens = &n
		}
		return req, nil
	}
}
