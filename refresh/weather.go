package refresh

import (
	"context"
	"encoding/json"
	"io/fs"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/promptrelay/contextstore"
	"github.com/jonwraymond/promptrelay/observe"
	"github.com/jonwraymond/promptrelay/template"
	"github.com/jonwraymond/promptrelay/upstream"
)

// Weather texts stored when no real value is available.
const (
	WeatherIncomplete = "天气服务配置不完整"
	WeatherReadFailed = "读取天气缓存失败"
	weatherFailPrefix = "获取天气信息时出错: "
)

// WeatherMarker wraps the weather payload in the reply.
const WeatherMarker = "WeatherInfo"

// SearchTool is the function tool offered to the weather model.
const SearchTool = "google_search"

var searchParameters = json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"Search query"}},"required":["query"]}`)

// WeatherFailed is the sentinel stored after every attempt fails.
func WeatherFailed(err error) string {
	return weatherFailPrefix + err.Error()
}

// WeatherConfig configures a Weather refresher.
type WeatherConfig struct {
	Model       string
	Prompt      string
	File        string // persisted weather file name or path
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
	UseSearch   bool
}

// Weather keeps the weather slot of a Store current.
type Weather struct {
	cfg     WeatherConfig
	caller  Caller
	worker  *Worker
	store   *contextstore.Store
	persist contextstore.Persister
	engine  *template.Engine
	logger  observe.Logger
	now     func() time.Time
}

// NewWeather returns a Weather refresher. The engine supplies time facts
// for the prompt.
func NewWeather(cfg WeatherConfig, caller Caller, store *contextstore.Store, persist contextstore.Persister, engine *template.Engine, inst *observe.Instrument) *Weather {
	if inst == nil {
		inst = observe.NopInstrument()
	}
	opts := []WorkerOption{
		WithMarker(WeatherMarker),
		WithDelay(cfg.RetryDelay),
		WithAttemptTimeout(cfg.Timeout),
		WithSentinel(WeatherFailed),
		WithInstrument(inst),
	}
	if cfg.UseSearch {
		opts = append(opts, WithExchange(EchoToolCalls))
	}
	return &Weather{
		cfg:     cfg,
		caller:  caller,
		worker:  NewWorker("weather", caller, opts...),
		store:   store,
		persist: persist,
		engine:  engine,
		logger:  inst.Logger().With(observe.Op{Component: "weather"}),
		now:     time.Now,
	}
}

// Configured reports whether a refresh can reach the upstream service.
func (w *Weather) Configured() bool {
	if w.cfg.Model == "" || w.cfg.Prompt == "" {
		return false
	}
	if c, ok := w.caller.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return w.caller != nil
}

// Load reads the persisted weather into the store. It reports whether the
// store now holds a value; a missing file reports false. An unreadable file
// stores WeatherReadFailed and reports true.
func (w *Weather) Load(ctx context.Context) (bool, error) {
	value, err := w.persist.Load(ctx, w.cfg.File)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		w.logger.Error(ctx, "weather cache unreadable", observe.F("file", w.cfg.File), observe.F("error", err))
		w.store.SetWeather(WeatherReadFailed, time.Time{})
		return true, err
	}
	w.store.SetWeather(value, w.now())
	return true, nil
}

// Refresh fetches the weather and updates the store and file. On failure a
// prior value is kept; without one the sentinel is stored and persisted.
func (w *Weather) Refresh(ctx context.Context) Outcome {
	if !w.Configured() {
		w.logger.Error(ctx, "weather configuration incomplete",
			observe.F("model_set", w.cfg.Model != ""),
			observe.F("prompt_set", w.cfg.Prompt != ""),
		)
		if w.store.Weather() == "" {
			w.store.SetWeather(WeatherIncomplete, time.Time{})
		}
		return Outcome{Value: WeatherIncomplete, Err: ErrConfigIncomplete}
	}

	out := w.worker.Refresh(ctx, w.buildPrompt, MinLength(1), w.cfg.MaxAttempts)
	switch {
	case out.OK:
		w.store.SetWeather(out.Value, w.now())
		w.save(ctx, out.Value)
		w.logger.Info(ctx, "weather refreshed", observe.F("attempts", out.Attempts))
	case w.store.Weather() != "":
		w.logger.Warn(ctx, "weather refresh failed, keeping previous value", observe.F("error", out.Err))
	default:
		w.store.SetWeather(out.Value, time.Time{})
		w.save(ctx, out.Value)
	}
	return out
}

func (w *Weather) save(ctx context.Context, value string) {
	if err := w.persist.Save(ctx, w.cfg.File, value); err != nil {
		w.logger.Error(ctx, "weather cache write failed", observe.F("file", w.cfg.File), observe.F("error", err))
	}
}

func (w *Weather) buildPrompt(_ context.Context, _ int) (upstream.ChatRequest, error) {
	prompt := w.cfg.Prompt
	if w.engine != nil {
		prompt = w.engine.Now().Apply(prompt)
	}
	req := upstream.ChatRequest{
		Model: w.cfg.Model,
		Messages: []upstream.Message{
			{Role: upstream.RoleUser, Content: upstream.TextContent(prompt)},
		},
	}
	if w.cfg.UseSearch {
		req.Tools = []upstream.Tool{{
			Type: "function",
			Function: upstream.Function{
				Name:        SearchTool,
				Description: "Search the web for current information.",
				Parameters:  searchParameters,
			},
		}}
		req.ToolChoice = json.RawMessage(`"auto"`)
	}
	return req, nil
}

// EchoToolCalls is an Exchange for models that may ask for a tool. When the
// first reply finishes with tool calls, a second request carries the
// assistant's tool-call message plus one tool message per call echoing its
// arguments. Only the final reply's text is returned. No tool is executed.
func EchoToolCalls(ctx context.Context, complete CompleteFunc, req upstream.ChatRequest) (string, error) {
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
	if choice.FinishReason != upstream.FinishToolCalls || len(choice.Message.ToolCalls) == 0 {
		return choice.Message.Content.String(), nil
	}

	assistant := *choice.Message
	assistant.Role = upstream.RoleAssistant

	follow := req
	follow.Messages = make([]upstream.Message, 0, len(req.Messages)+1+len(assistant.ToolCalls))
	follow.Messages = append(follow.Messages, req.Messages...)
	follow.Messages = append(follow.Messages, assistant)
	for _, call := range assistant.ToolCalls {
		follow.Messages = append(follow.Messages, upstream.Message{
			Role:       upstream.RoleTool,
			Name:       call.Function.Name,
			ToolCallID: call.ID,
			Content:    upstream.TextContent(call.Function.Arguments),
		})
	}

	resp, err = complete(ctx, follow)
	if err != nil {
		return "", errors.Wrap(err, "tool follow-up")
	}
	return resp.Text(), nil
}
