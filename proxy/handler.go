package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/jonwraymond/promptrelay/observe"
	"github.com/jonwraymond/promptrelay/relay"
	"github.com/jonwraymond/promptrelay/upstream"
)

// Paths served by the handler.
const (
	CompletionsPath = upstream.CompletionsPath
	ModelsPath      = upstream.ModelsPath
)

// RequestIDHeader carries the request id to the caller and upstream.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxBodyBytes bounds an inbound request body.
const DefaultMaxBodyBytes = 64 << 20

// DefaultDiaryTimeout bounds one background diary capture.
const DefaultDiaryTimeout = 30 * time.Second

// Forwarder reaches the upstream service. *upstream.Client satisfies it.
type Forwarder interface {
	Forward(ctx context.Context, body []byte, header http.Header) (*http.Response, error)
	Models(ctx context.Context) (*http.Response, error)
}

// DiaryCapturer saves a diary block found in reply text.
type DiaryCapturer interface {
	Capture(ctx context.Context, text string) (path string, ok bool)
}

// Options configures a Handler.
type Options struct {
	// CaptionConcurrency is the caption batch size. Zero means 1.
	CaptionConcurrency int

	// MaxBodyBytes bounds inbound bodies. Zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// DiaryTimeout bounds each background capture. Zero uses
	// DefaultDiaryTimeout.
	DiaryTimeout time.Duration
}

// Handler serves the proxied chat-completion endpoints.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: only a transport failure on the forwarded request reaches the
//     caller, as 502.
type Handler struct {
	opts     Options
	upstream Forwarder
	resolver Resolver
	captions Describer
	diary    DiaryCapturer
	inst     *observe.Instrument
	logger   observe.Logger

	background sync.WaitGroup
}

// New returns a Handler. A nil captions disables image captioning; a nil
// diary disables diary capture. inst traces each forwarded call.
func New(opts Options, fwd Forwarder, resolver Resolver, captions Describer, diary DiaryCapturer, inst *observe.Instrument) *Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.DiaryTimeout <= 0 {
		opts.DiaryTimeout = DefaultDiaryTimeout
	}
	if inst == nil {
		inst = observe.NopInstrument()
	}
	return &Handler{
		opts:     opts,
		upstream: fwd,
		resolver: resolver,
		captions: captions,
		diary:    diary,
		inst:     inst,
		logger:   inst.Logger().With(observe.Op{Component: "proxy"}),
	}
}

// Routes returns a mux serving the completions and models endpoints.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+CompletionsPath, h.Completions)
	mux.HandleFunc("GET "+ModelsPath, h.Models)
	return mux
}

// Wait blocks until background diary captures have finished.
func (h *Handler) Wait() {
	h.background.Wait()
}

// Completions rewrites and forwards one chat-completion request.
func (h *Handler) Completions(w http.ResponseWriter, r *http.Request) {
	ctx := withRequestID(w, r)
	start := time.Now()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	var req upstream.ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.logger.Warn(ctx, "request body rejected", observe.F("error", err))
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.Augment(ctx, &req)

	body, err := json.Marshal(req)
	if err != nil {
		h.logger.Error(ctx, "request encode failed", observe.F("error", err))
		writeError(w, http.StatusInternalServerError, "request encode failed")
		return
	}

	header := http.Header{}
	if accept := r.Header.Get("Accept"); accept != "" {
		header.Set("Accept", accept)
	}
	var resp *http.Response
	op := observe.Op{Component: "proxy", Name: "forward", Model: req.Model}
	err = h.inst.Call(ctx, op, func(ctx context.Context) error {
		var err error
		resp, err = h.upstream.Forward(ctx, body, header)
		return err
	})
	if err != nil {
		h.logger.Error(ctx, "upstream unreachable", observe.F("model", req.Model), observe.F("error", err))
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	agg := relay.Tee(w, resp.Body)
	if err := agg.Err(); err != nil {
		h.logger.Warn(ctx, "relay interrupted", observe.F("error", err))
	}
	h.logger.Info(ctx, "request relayed",
		observe.F("model", req.Model),
		observe.F("status", resp.StatusCode),
		observe.F("duration_ms", time.Since(start).Milliseconds()),
	)

	if h.diary == nil || resp.StatusCode >= http.StatusBadRequest {
		return
	}
	h.captureLater(ctx, agg)
}

// captureLater waits for reconstruction and saves any diary block. It runs
// detached from the request so a closed connection does not cancel it.
func (h *Handler) captureLater(reqCtx context.Context, agg *relay.Aggregation) {
	ctx := context.WithoutCancel(reqCtx)
	h.background.Add(1)
	go func() {
		defer h.background.Done()

		res := agg.Wait()
		if !res.OK {
			if res.Err == nil {
				h.logger.Debug(ctx, "reply text not recognized")
			}
			return
		}
		ctx, cancel := context.WithTimeout(ctx, h.opts.DiaryTimeout)
		defer cancel()
		h.diary.Capture(ctx, res.Text)
	}()
}

// Models passes the upstream model listing through.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	ctx := withRequestID(w, r)

	resp, err := h.upstream.Models(ctx)
	if err != nil {
		h.logger.Error(ctx, "model listing failed", observe.F("error", err))
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn(ctx, "model listing relay interrupted", observe.F("error", err))
	}
}

// strippedHeaders are never copied from the upstream response.
var strippedHeaders = map[string]bool{
	"Content-Encoding":  true,
	"Transfer-Encoding": true,
	"Content-Length":    true,
	"Authorization":     true,
	"Connection":        true,
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		if strippedHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func withRequestID(w http.ResponseWriter, r *http.Request) context.Context {
	id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	return observe.WithRequestID(r.Context(), id)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
