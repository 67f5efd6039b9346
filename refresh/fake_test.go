package refresh

import (
	"context"
	"sync"

	"github.com/jonwraymond/promptrelay/upstream"
)

// fakeCaller records requests and answers from reply.
type fakeCaller struct {
	mu    sync.Mutex
	reqs  []upstream.ChatRequest
	reply func(n int, req upstream.ChatRequest) (*upstream.ChatResponse, error)
}

func (f *fakeCaller) Complete(_ context.Context, req upstream.ChatRequest) (*upstream.ChatResponse, error) {
	f.mu.Lock()
	n := len(f.reqs)
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.reply(n, req)
}

func (f *fakeCaller) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeCaller) request(i int) upstream.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[i]
}

func textReply(text string) *upstream.ChatResponse {
	return &upstream.ChatResponse{Choices: []upstream.Choice{{
		Message: &upstream.Message{Role: upstream.RoleAssistant, Content: upstream.TextContent(text)},
	}}}
}

func always(text string) func(int, upstream.ChatRequest) (*upstream.ChatResponse, error) {
	return func(int, upstream.ChatRequest) (*upstream.ChatResponse, error) {
		return textReply(text), nil
	}
}

func staticPrompt(context.Context, int) (upstream.ChatRequest, error) {
	return upstream.ChatRequest{Model: "m", Messages: []upstream.Message{
		{Role: upstream.RoleUser, Content: upstream.TextContent("go")},
	}}, nil
}
