package contextstore

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestFilePersister_RoundTrip(t *testing.T) {
	p := NewFilePersister(t.TempDir())
	ctx := context.Background()

	if err := p.Save(ctx, "Nova表情包.txt", "a.png|b.png"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := p.Load(ctx, "Nova表情包.txt")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "a.png|b.png" {
		t.Errorf("Load() = %q", got)
	}
}

func TestFilePersister_MissingIsNotExist(t *testing.T) {
	p := NewFilePersister(t.TempDir())

	_, err := p.Load(context.Background(), "Weather.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() error = %v, want fs.ErrNotExist", err)
	}
}

func TestFilePersister_AbsolutePath(t *testing.T) {
	p := NewFilePersister("relative-root")
	abs := filepath.Join(t.TempDir(), "Weather.txt")

	if p.Path(abs) != abs {
		t.Errorf("Path(%q) = %q", abs, p.Path(abs))
	}
	if err := p.Save(context.Background(), abs, "晴"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}
