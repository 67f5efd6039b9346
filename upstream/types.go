package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Roles used by the refresh workers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Part types.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// FinishToolCalls is the finish reason of a completion that requests tools.
const FinishToolCalls = "tool_calls"

// ChatRequest is a chat-completion request.
type ChatRequest struct {
	Model      string          `json:"model"`
	Messages   []Message       `json:"messages"`
	Tools      []Tool          `json:"tools,omitempty"`
	ToolChoice json.RawMessage `json:"tool_choice,omitempty"`
	MaxTokens  *int            `json:"max_tokens,omitempty"`
	Stream     *bool           `json:"stream,omitempty"`

	// Extra holds members not modeled above.
	Extra map[string]json.RawMessage `json:"-"`
}

type chatRequestAlias ChatRequest

// MarshalJSON encodes the request with its extra members.
func (r ChatRequest) MarshalJSON() ([]byte, error) {
	return withExtras(chatRequestAlias(r), r.Extra)
}

// UnmarshalJSON decodes the request and keeps unknown members.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	var a chatRequestAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extras(data, "model", "messages", "tools", "tool_choice", "max_tokens", "stream")
	if err != nil {
		return err
	}
	*r = ChatRequest(a)
	r.Extra = extra
	return nil
}

// Message is one role-tagged turn.
type Message struct {
	Role       string     `json:"role"`
	Content    Content    `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type messageAlias Message

// MarshalJSON encodes the message with its extra members.
func (m Message) MarshalJSON() ([]byte, error) {
	return withExtras(messageAlias(m), m.Extra)
}

// UnmarshalJSON decodes the message and keeps unknown members.
func (m *Message) UnmarshalJSON(data []byte) error {
	var a messageAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extras(data, "role", "content", "name", "tool_calls", "tool_call_id")
	if err != nil {
		return err
	}
	*m = Message(a)
	m.Extra = extra
	return nil
}

// contentKind tells which JSON shape a Content holds.
type contentKind int

const (
	contentNull contentKind = iota
	contentText
	contentParts
)

// Content is message content: null, a string, or a list of parts.
type Content struct {
	kind  contentKind
	text  string
	parts []Part
}

// TextContent returns string content.
func TextContent(s string) Content {
	return Content{kind: contentText, text: s}
}

// PartsContent returns list content.
func PartsContent(parts ...Part) Content {
	return Content{kind: contentParts, parts: parts}
}

// IsNull reports whether the content is absent or null.
func (c Content) IsNull() bool { return c.kind == contentNull }

// IsParts reports whether the content is a list of parts.
func (c Content) IsParts() bool { return c.kind == contentParts }

// Parts returns the parts of list content. The slice is shared.
func (c Content) Parts() []Part { return c.parts }

// String returns string content as is, or the concatenated text of every
// text part.
func (c Content) String() string {
	switch c.kind {
	case contentText:
		return c.text
	case contentParts:
		var b strings.Builder
		for _, p := range c.parts {
			if p.Type == PartText {
				b.WriteString(p.Text)
			}
		}
		return b.String()
	default:
		return ""
	}
}

// MarshalJSON encodes the content in its original shape.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case contentText:
		return json.Marshal(c.text)
	case contentParts:
		if c.parts == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.parts)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, a string or an array of parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*c = Content{}
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = TextContent(s)
	case trimmed[0] == '[':
		var parts []Part
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return err
		}
		*c = PartsContent(parts...)
	default:
		return fmt.Errorf("upstream: unsupported content shape %q", trimmed[:1])
	}
	return nil
}

// Part is one element of list content.
type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type partAlias Part

// MarshalJSON encodes the part with its extra members.
func (p Part) MarshalJSON() ([]byte, error) {
	if p.Type == PartText {
		// An empty text part still needs its text member.
		type textPart struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		return withExtras(textPart{Type: p.Type, Text: p.Text}, p.Extra)
	}
	return withExtras(partAlias(p), p.Extra)
}

// UnmarshalJSON decodes the part and keeps unknown members.
func (p *Part) UnmarshalJSON(data []byte) error {
	var a partAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extras(data, "type", "text", "image_url")
	if err != nil {
		return err
	}
	*p = Part(a)
	p.Extra = extra
	return nil
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// ImagePart returns an image_url part.
func ImagePart(url string) Part {
	return Part{Type: PartImageURL, ImageURL: &ImageURL{URL: url}}
}

// InlineImage returns the data URL of an inline image part.
func (p Part) InlineImage() (string, bool) {
	if p.Type != PartImageURL || p.ImageURL == nil {
		return "", false
	}
	if !strings.HasPrefix(p.ImageURL.URL, "data:") {
		return "", false
	}
	return p.ImageURL.URL, true
}

// ImageURL is the payload of an image_url part.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// Tool is a function tool offered to the model.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function describes a callable function.
type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is a non-streamed completion, or one chunk of a stream.
type ChatResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message,omitempty"`
	Delta        *Message `json:"delta,omitempty"`
	FinishReason string   `json:"finish_reason,omitempty"`
}

// First returns the first choice.
func (r *ChatResponse) First() (Choice, error) {
	if r == nil || len(r.Choices) == 0 {
		return Choice{}, ErrNoChoices
	}
	return r.Choices[0], nil
}

// Text returns the message text of the first choice, or "".
func (r *ChatResponse) Text() string {
	c, err := r.First()
	if err != nil || c.Message == nil {
		return ""
	}
	return c.Message.Content.String()
}
