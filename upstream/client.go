package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/promptrelay/observe"
)

// Paths appended to the base URL.
const (
	CompletionsPath = "/v1/chat/completions"
	ModelsPath      = "/v1/models"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Config configures a Client.
type Config struct {
	// BaseURL is the upstream origin, e.g. "https://api.example.com".
	BaseURL string

	// APIKey is sent as a bearer token.
	APIKey string

	// HTTPClient defaults to a client without an overall timeout, since
	// forwarded streams may run for minutes. Per-call deadlines come from ctx.
	HTTPClient *http.Client
}

// Client calls the upstream chat-completion API.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every call honors ctx cancellation and deadlines.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: http.DefaultTransport}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    hc,
	}
}

// Configured reports whether both base URL and key are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Complete sends req and decodes a single JSON completion. req.Stream is
// forced off. A status >= 400 yields a *StatusError.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	off := false
	req.Stream = &off

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	resp, err := c.post(ctx, CompletionsPath, body, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	if resp.StatusCode >= 400 {
		return nil, newStatusError(resp.StatusCode, respBody)
	}

	var out ChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.WithDetailf(errors.Wrap(err, "unmarshal response"), "body: %.512s", respBody)
	}
	return &out, nil
}

// Forward posts an already-encoded request body and returns the live
// response whatever its status. The caller closes the body. Only transport
// failures are errors.
func (c *Client) Forward(ctx context.Context, body []byte, header http.Header) (*http.Response, error) {
	return c.post(ctx, CompletionsPath, body, header)
}

// Models fetches the upstream model listing. The caller closes the body.
func (c *Client) Models(ctx context.Context) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ModelsPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	c.decorate(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	return resp, nil
}

// Ping checks that the upstream answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := c.Models(ctx)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.Body.Close()
}

func (c *Client) post(ctx context.Context, path string, body []byte, header http.Header) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	return resp, nil
}

func (c *Client) decorate(ctx context.Context, req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if id := observe.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
}

func newStatusError(code int, body []byte) *StatusError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{Code: code, Body: strings.TrimSpace(string(body))}
}
