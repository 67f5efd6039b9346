package diary

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/promptrelay/observe"
)

const stampLayout = "15_04_05.000"

// maxCollisions bounds the suffixes tried when two records land on the same
// millisecond.
const maxCollisions = 100

// Writer stores records under a root directory, one file per record.
type Writer struct {
	root   string
	now    func() time.Time
	logger observe.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock sets the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger sets the logger used by Capture.
func WithLogger(l observe.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l.With(observe.Op{Component: "diary", Name: "capture"})
		}
	}
}

// NewWriter returns a Writer rooted at root.
func NewWriter(root string, opts ...Option) *Writer {
	w := &Writer{
		root:   root,
		now:    time.Now,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write creates <root>/<subject>/<date>-<HH_MM_SS.mmm>.txt holding
// "[<date>] - <subject>" followed by the content. Existing files are never
// overwritten. It returns the written path.
func (w *Writer) Write(ctx context.Context, rec Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if rec.Subject == "" || rec.Date == "" || rec.Content == "" {
		return "", ErrIncomplete
	}

	dir := filepath.Join(w.root, sanitize(rec.Subject))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create diary directory %s", dir)
	}

	body := "[" + rec.Date + "] - " + rec.Subject + "\n" + rec.Content
	base := sanitize(rec.Date) + "-" + w.now().Format(stampLayout)

	for i := 0; i < maxCollisions; i++ {
		name := base
		if i > 0 {
			name += "-" + strconv.Itoa(i)
		}
		path := filepath.Join(dir, name+".txt")

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "create diary file %s", path)
		}
		if _, err := f.WriteString(body); err != nil {
			_ = f.Close()
			return "", errors.Wrapf(err, "write diary file %s", path)
		}
		if err := f.Close(); err != nil {
			return "", errors.Wrapf(err, "close diary file %s", path)
		}
		return path, nil
	}
	return "", errors.Newf("diary: %d files already named %s", maxCollisions, base)
}

// Capture extracts a record from text and writes it. Failures are logged and
// reported through ok; text without a block is silently ignored.
func (w *Writer) Capture(ctx context.Context, text string) (path string, ok bool) {
	rec, err := Parse(text)
	if errors.Is(err, ErrNoBlock) {
		return "", false
	}
	if err != nil {
		w.logger.Warn(ctx, "diary block rejected", observe.F("error", err))
		return "", false
	}

	path, err = w.Write(ctx, rec)
	if err != nil {
		w.logger.Error(ctx, "diary write failed",
			observe.F("subject", rec.Subject),
			observe.F("error", errors.WithDetailf(err, "date=%s", rec.Date)),
		)
		return "", false
	}
	w.logger.Info(ctx, "diary saved", observe.F("subject", rec.Subject), observe.F("path", path))
	return path, true
}

var unsafeRunes = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_", "\x00", "_",
)

// sanitize makes s usable as one path element. Dots are kept so dated names
// like 2024.1.2 survive.
func sanitize(s string) string {
	s = strings.TrimSpace(unsafeRunes.Replace(s))
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
