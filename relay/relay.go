// Package relay passes an upstream response body through to the caller
// unchanged while keeping a copy, then reconstructs the generated text from
// that copy.
//
// The body has two consumers: the caller's sink, written as bytes arrive,
// and an in-memory buffer classified once the stream ends. Classification
// never touches what was already sent.
package relay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/promptrelay/upstream"
)

// Format is the detected shape of a response body.
type Format int

const (
	// FormatUnknown means neither parser recovered text.
	FormatUnknown Format = iota
	// FormatStream is an incremental event stream of "data:" lines.
	FormatStream
	// FormatJSON is one JSON completion document.
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatStream:
		return "stream"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

const (
	dataPrefix = "data:"
	doneToken  = "[DONE]"
)

// Result is the outcome of reconstruction.
type Result struct {
	OK     bool
	Text   string
	Format Format
	Err    error // relay failure; OK is false when set
}

// Aggregation is the completion handle returned by Tee.
type Aggregation struct {
	relayErr error
	done     chan struct{}
	result   Result
}

// flusher matches http.Flusher without importing net/http.
type flusher interface {
	Flush()
}

const chunkSize = 32 << 10

// Tee copies src to dst chunk by chunk, flushing dst after each write when
// it supports flushing, and keeps a copy of every byte. It returns once src
// is drained or either side fails. Reconstruction of the copy then runs in
// the background; Wait returns its result.
func Tee(dst io.Writer, src io.Reader) *Aggregation {
	var buf bytes.Buffer
	a := &Aggregation{done: make(chan struct{})}

	f, canFlush := dst.(flusher)
	chunk := make([]byte, chunkSize)
	for {
		n, readErr := src.Read(chunk)
		if n > 0 {
			if _, err := dst.Write(chunk[:n]); err != nil {
				a.relayErr = errors.Wrap(err, "write to caller")
				break
			}
			if canFlush {
				f.Flush()
			}
			buf.Write(chunk[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			a.relayErr = errors.Wrap(readErr, "read from upstream")
			break
		}
	}

	if a.relayErr != nil {
		a.result = Result{Err: a.relayErr}
		close(a.done)
		return a
	}

	go func() {
		defer close(a.done)
		a.result = Classify(buf.Bytes())
	}()
	return a
}

// Err returns the relay failure, if any. It does not block.
func (a *Aggregation) Err() error {
	return a.relayErr
}

// Wait blocks until reconstruction finishes and returns its result.
func (a *Aggregation) Wait() Result {
	<-a.done
	return a.result
}

// Classify reconstructs the generated text from a complete response body.
//
// When any line starts with "data:", the body is read as an event stream:
// each payload other than [DONE] is decoded and its delta or message text
// appended. Malformed payloads are skipped. If that yields no text, the
// whole body is decoded as one completion document.
func Classify(body []byte) Result {
	if text, ok := parseStream(body); ok {
		return Result{OK: true, Text: text, Format: FormatStream}
	}

	var resp upstream.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}
	}
	choice, err := resp.First()
	if err != nil || choice.Message == nil {
		return Result{}
	}
	return Result{OK: true, Text: choice.Message.Content.String(), Format: FormatJSON}
}

func parseStream(body []byte) (string, bool) {
	var text strings.Builder

	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64<<10), len(body)+1)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		payload, ok := strings.CutPrefix(line, dataPrefix)
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" || payload == doneToken {
			continue
		}

		var chunk upstream.ChatResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		choice, err := chunk.First()
		if err != nil {
			continue
		}
		switch {
		case choice.Delta != nil:
			text.WriteString(choice.Delta.Content.String())
		case choice.Message != nil:
			text.WriteString(choice.Message.Content.String())
		}
	}

	return text.String(), text.Len() > 0
}
