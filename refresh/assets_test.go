package refresh

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/promptrelay/contextstore"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newAssets(t *testing.T) (*Assets, *contextstore.Store, *contextstore.FilePersister) {
	t.Helper()
	store := contextstore.New(contextstore.Config{})
	persist := contextstore.NewFilePersister(t.TempDir())
	return NewAssets(t.TempDir(), store, persist, nil), store, persist
}

func TestAssets_RefreshFiltersAndJoins(t *testing.T) {
	a, store, persist := newAssets(t)
	dir := a.Dir("Nova")
	touch(t, dir, "b.PNG", "a.jpg", "notes.txt", "c.webp", "d.JPEG", "e.gif", "f.bmp")
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := a.Refresh(context.Background(), "Nova", dir)
	want := "a.jpg|b.PNG|c.webp|d.JPEG|e.gif"
	if got != want {
		t.Errorf("Refresh() = %q, want %q", got, want)
	}
	if list, _ := store.AssetList("Nova"); list != want {
		t.Errorf("store list = %q", list)
	}
	if saved, err := persist.Load(context.Background(), "Nova表情包.txt"); err != nil || saved != want {
		t.Errorf("persisted = %q, %v", saved, err)
	}
}

func TestAssets_MissingDirectory(t *testing.T) {
	a, store, persist := newAssets(t)

	got := a.Refresh(context.Background(), "Ghost", a.Dir("Ghost"))
	if got != "Ghost表情包目录不存在" {
		t.Errorf("Refresh() = %q", got)
	}
	if list, _ := store.AssetList("Ghost"); list != got {
		t.Errorf("store list = %q", list)
	}
	if saved, _ := persist.Load(context.Background(), ListFile("Ghost")); saved != got {
		t.Errorf("diagnostic not persisted: %q", saved)
	}
}

func TestAssets_ReadErrorFallsBackToPersisted(t *testing.T) {
	a, store, persist := newAssets(t)
	ctx := context.Background()

	notDir := filepath.Join(t.TempDir(), "file")
	touch(t, filepath.Dir(notDir), "file")
	if err := persist.Save(ctx, ListFile("Nova"), "old.png"); err != nil {
		t.Fatal(err)
	}

	if got := a.Refresh(ctx, "Nova", notDir); got != "old.png" {
		t.Errorf("Refresh() = %q, want persisted list", got)
	}
	if list, _ := store.AssetList("Nova"); list != "old.png" {
		t.Errorf("store list = %q", list)
	}

	if got := a.Refresh(ctx, "Other", notDir); got != ListFailed("Other") {
		t.Errorf("Refresh() without history = %q, want diagnostic", got)
	}
}

func TestAssets_RefreshAll(t *testing.T) {
	a, store, _ := newAssets(t)
	touch(t, a.Dir("通用"), "smile.png")
	touch(t, a.Dir("Nova"), "wave.gif")
	touch(t, filepath.Join(a.Root(), "misc"), "x.png")
	touch(t, a.Root(), "loose表情包")

	agents, err := a.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Nova", "通用"}, agents); diff != "" {
		t.Errorf("agents mismatch (-want +got):\n%s", diff)
	}
	if list, _ := store.AssetList("通用"); list != "smile.png" {
		t.Errorf("通用 list = %q", list)
	}
}

func TestAssets_RefreshAllMissingRoot(t *testing.T) {
	store := contextstore.New(contextstore.Config{})
	a := NewAssets(filepath.Join(t.TempDir(), "none"), store, contextstore.NewFilePersister(t.TempDir()), nil)

	if _, err := a.RefreshAll(context.Background()); err == nil {
		t.Error("RefreshAll() error = nil for a missing root")
	}
}
