package diary

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonwraymond/promptrelay/observe"
)

func fixedClock() time.Time {
	return time.Date(2024, 1, 2, 15, 4, 5, 678_000_000, time.UTC)
}

func TestWriter_Write(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, WithClock(fixedClock))

	path, err := w.Write(context.Background(), Record{Subject: "Nova", Date: "2024.1.2", Content: "Went out."})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	wantPath := filepath.Join(root, "Nova", "2024.1.2-15_04_05.678.txt")
	if path != wantPath {
		t.Errorf("path = %q, want %q", path, wantPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got, want := string(data), "[2024.1.2] - Nova\nWent out."; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestWriter_WriteNeverOverwrites(t *testing.T) {
	w := NewWriter(t.TempDir(), WithClock(fixedClock))
	rec := Record{Subject: "Nova", Date: "2024.1.2", Content: "first"}

	first, err := w.Write(context.Background(), rec)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	rec.Content = "second"
	second, err := w.Write(context.Background(), rec)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if first == second {
		t.Fatalf("both records written to %s", first)
	}
	data, _ := os.ReadFile(first)
	if !strings.HasSuffix(string(data), "first") {
		t.Errorf("first record overwritten: %q", data)
	}
}

func TestWriter_WriteSanitizesPathElements(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, WithClock(fixedClock))

	path, err := w.Write(context.Background(), Record{Subject: "../x", Date: "2024/1/2", Content: "c"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		t.Fatalf("path %s escapes %s", path, root)
	}
	if filepath.Base(path) != "2024_1_2-15_04_05.678.txt" {
		t.Errorf("file name = %q", filepath.Base(path))
	}
}

func TestWriter_WriteRejectsIncomplete(t *testing.T) {
	w := NewWriter(t.TempDir())
	if _, err := w.Write(context.Background(), Record{Subject: "Nova"}); err == nil {
		t.Error("Write() error = nil, want ErrIncomplete")
	}
}

func TestWriter_Capture(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	root := t.TempDir()
	w := NewWriter(root, WithClock(fixedClock), WithLogger(observe.NewLoggerFromZap(zap.New(core))))
	ctx := context.Background()

	if _, ok := w.Capture(ctx, "no diary here"); ok {
		t.Error("Capture() ok = true for plain text")
	}
	if logs.Len() != 0 {
		t.Errorf("plain text logged %d entries", logs.Len())
	}

	if _, ok := w.Capture(ctx, "<<<DailyNoteStart>>>Maid: Nova\nContent: c<<<DailyNoteEnd>>>"); ok {
		t.Error("Capture() ok = true for incomplete block")
	}
	if logs.FilterMessage("diary block rejected").Len() != 1 {
		t.Error("incomplete block not logged")
	}

	path, ok := w.Capture(ctx, "<<<DailyNoteStart>>>Maid: Nova\nDate: 2024.1.2\nContent: c<<<DailyNoteEnd>>>")
	if !ok {
		t.Fatal("Capture() ok = false")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("captured file missing: %v", err)
	}
}

func TestWriter_CaptureLogsWriteFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewWriter(root, WithLogger(observe.NewLoggerFromZap(zap.New(core))))

	if _, ok := w.Capture(context.Background(), "<<<DailyNoteStart>>>Maid: Nova\nDate: d\nContent: c<<<DailyNoteEnd>>>"); ok {
		t.Error("Capture() ok = true with an unusable root")
	}
	entries := logs.FilterMessage("diary write failed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d failure entries, want 1", len(entries))
	}
	if _, ok := entries[0].ContextMap()["error_detail"]; !ok {
		t.Error("failure entry lacks error detail")
	}
}
