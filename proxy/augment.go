package proxy

import (
	"context"
	"fmt"

	"github.com/jonwraymond/promptrelay/observe"
	"github.com/jonwraymond/promptrelay/resilience"
	"github.com/jonwraymond/promptrelay/upstream"
)

// Describer produces a caption for an inline image. On failure it still
// returns the text to insert.
type Describer interface {
	Describe(ctx context.Context, imageData string) (string, error)
}

// Resolver rewrites one text segment.
type Resolver interface {
	ResolveString(ctx context.Context, text string) string
}

// imageRef locates one inline image in a request.
type imageRef struct {
	msg  int
	part int
	data string
}

// ImageCaption formats the text that replaces the k-th image of a message.
func ImageCaption(k int, desc string) string {
	return fmt.Sprintf("[IMAGE%dInfo: %s]", k, desc)
}

func inlineImages(req *upstream.ChatRequest) []imageRef {
	var refs []imageRef
	for i, m := range req.Messages {
		if !m.Content.IsParts() {
			continue
		}
		for j, p := range m.Content.Parts() {
			if data, ok := p.InlineImage(); ok {
				refs = append(refs, imageRef{msg: i, part: j, data: data})
			}
		}
	}
	return refs
}

// caption replaces every inline image with its caption. Images are
// described size at a time; a batch starts only after the previous one has
// finished.
func (h *Handler) caption(ctx context.Context, req *upstream.ChatRequest) {
	refs := inlineImages(req)
	if len(refs) == 0 || h.captions == nil {
		return
	}

	descs := make([]string, len(refs))
	_ = resilience.RunChunked(ctx, len(refs), h.opts.CaptionConcurrency, func(ctx context.Context, i int) error {
		desc, err := h.captions.Describe(ctx, refs[i].data)
		if err != nil {
			h.logger.Warn(ctx, "image caption degraded",
				observe.F("message", refs[i].msg),
				observe.F("part", refs[i].part),
				observe.F("error", err),
			)
		}
		descs[i] = desc
		return nil
	})

	byMsg := make(map[int][]int)
	for i, r := range refs {
		byMsg[r.msg] = append(byMsg[r.msg], i)
	}
	for msg, idxs := range byMsg {
		parts := append([]upstream.Part(nil), req.Messages[msg].Content.Parts()...)
		for k, i := range idxs {
			parts[refs[i].part] = upstream.TextPart(ImageCaption(k+1, descs[i]))
		}
		req.Messages[msg].Content = upstream.PartsContent(parts...)
	}
	h.logger.Debug(ctx, "images captioned", observe.F("count", len(refs)))
}

// resolve rewrites string content and text parts of every message.
func (h *Handler) resolve(ctx context.Context, req *upstream.ChatRequest) {
	for i := range req.Messages {
		c := req.Messages[i].Content
		switch {
		case c.IsNull():
		case c.IsParts():
			parts := append([]upstream.Part(nil), c.Parts()...)
			for j := range parts {
				if parts[j].Type == upstream.PartText {
					parts[j].Text = h.resolver.ResolveString(ctx, parts[j].Text)
				}
			}
			req.Messages[i].Content = upstream.PartsContent(parts...)
		default:
			req.Messages[i].Content = upstream.TextContent(h.resolver.ResolveString(ctx, c.String()))
		}
	}
}

// Augment captions images and resolves text in req, in that order.
func (h *Handler) Augment(ctx context.Context, req *upstream.ChatRequest) {
	h.caption(ctx, req)
	h.resolve(ctx, req)
}
