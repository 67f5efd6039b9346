package template

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

	"github.com/jonwraymond/promptrelay/contextstore"
	"github.com/jonwraymond/promptrelay/observe"
)

var fixedNow = time.Date(2024, 2, 10, 9, 5, 7, 0, time.UTC)

func newEngine(t *testing.T, cfg contextstore.Config, opts ...Option) (*Engine, *contextstore.Store) {
	t.Helper()
	store := contextstore.New(cfg)
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	}, opts...)
	return New(store, opts...), store
}

func TestResolve_Nil(t *testing.T) {
	e, _ := newEngine(t, contextstore.Config{})
	if got := e.Resolve(context.Background(), nil); got != "" {
		t.Errorf("Resolve(nil) = %q, want empty", got)
	}
}

func TestResolve_NoPlaceholdersUnchanged(t *testing.T) {
	e, _ := newEngine(t, contextstore.Config{})
	inputs := []string{
		"plain text",
		"braces { } and {single}",
		"{{UnknownThing}} stays",
		"多字节文本 with $5",
	}
	for _, in := range inputs {
		if got := e.ResolveString(context.Background(), in); got != in {
			t.Errorf("ResolveString(%q) = %q", in, got)
		}
	}
}

func TestResolve_TimeAndFixedFacts(t *testing.T) {
	e, store := newEngine(t, contextstore.Config{})

	got := e.ResolveString(context.Background(), "{{Date::time}} {{Today}} [{{WeatherInfo}}] [{{SystemInfo}}]")
	want := "2024/2/10 09:05:07 星期六 [" + WeatherUnavailable + "] [" + SystemInfoMissing + "]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	store.SetWeather("晴 25°C", fixedNow)
	e2 := New(contextstore.New(contextstore.Config{Static: map[string]string{"SystemInfo": "Arch Linux"}}))
	if got := e2.ResolveString(context.Background(), "{{SystemInfo}}"); got != "Arch Linux" {
		t.Errorf("SystemInfo = %q", got)
	}
	if got := e.ResolveString(context.Background(), "{{WeatherInfo}}"); got != "晴 25°C" {
		t.Errorf("WeatherInfo = %q", got)
	}
}

func TestResolve_ReservedPrefixNeverLeaksToken(t *testing.T) {
	e, _ := newEngine(t, contextstore.Config{Vars: map[string]string{
		"VarUser": "Ryan",
		"VarCity": "",
	}})

	got := e.ResolveString(context.Background(), "{{VarUser}} in {{VarCity}} / {{VarUser}}")
	want := "Ryan in " + NotConfigured("VarCity") + " / Ryan"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if strings.Contains(got, "{{Var") {
		t.Errorf("reserved token leaked: %q", got)
	}
}

func TestResolve_EmojiPromptNestedOrder(t *testing.T) {
	e, store := newEngine(t, contextstore.Config{Static: map[string]string{
		"EmojiPrompt": "可用表情: {{通用表情包}}",
	}})
	store.SetAssetList(CommonAgent, "smile.png|cry.gif")

	got := e.ResolveString(context.Background(), "{{EmojiPrompt}}\n{{EmojiPrompt}}")
	want := "可用表情: smile.png|cry.gif\n可用表情: smile.png|cry.gif"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolve_EmojiPromptUnknownCommonAgent(t *testing.T) {
	e, _ := newEngine(t, contextstore.Config{Static: map[string]string{
		"EmojiPrompt": "[{{通用表情包}}]",
	}})

	got := e.ResolveString(context.Background(), "{{EmojiPrompt}}")
	if got != "["+AssetUnavailable(CommonAgent)+"]" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_AssetLists(t *testing.T) {
	e, store := newEngine(t, contextstore.Config{})
	store.SetAssetList("Nova", "a.png|c.JPG")

	got := e.ResolveString(context.Background(), "{{Nova表情包}} {{Ghost表情包}}")
	want := "a.png|c.JPG " + AssetUnavailable("Ghost")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func writeDiary(t *testing.T, root, character, name, body string) {
	t.Helper()
	dir := filepath.Join(root, character)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve_DiarySortedAndJoined(t *testing.T) {
	root := t.TempDir()
	writeDiary(t, root, "小克", "2024.1.2.txt", "second")
	writeDiary(t, root, "小克", "2024.1.1.txt", "first")
	writeDiary(t, root, "小克", "notes.json", "ignored")

	e, _ := newEngine(t, contextstore.Config{}, WithDiaryRoot(root))

	got := e.ResolveString(context.Background(), "{{小克日记本}}")
	want := "first" + DiarySeparator + "second"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolve_DiaryRepeatReusesFirstScan(t *testing.T) {
	root := t.TempDir()
	writeDiary(t, root, "A", "1.txt", "one")
	e, _ := newEngine(t, contextstore.Config{}, WithDiaryRoot(root))

	got := e.ResolveString(context.Background(), "{{A日记本}}|{{A日记本}}")
	if got != "one|one" {
		t.Errorf("got %q, want one|one", got)
	}
}

func TestResolve_DiaryContentIsNotReexpanded(t *testing.T) {
	root := t.TempDir()
	writeDiary(t, root, "A", "1.txt", "see {{B日记本}}")
	writeDiary(t, root, "B", "1.txt", "b-body")
	e, _ := newEngine(t, contextstore.Config{}, WithDiaryRoot(root))

	got := e.ResolveString(context.Background(), "{{A日记本}}")
	if got != "see {{B日记本}}" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_DiaryMissingAndUnsafe(t *testing.T) {
	e, _ := newEngine(t, contextstore.Config{}, WithDiaryRoot(t.TempDir()))

	got := e.ResolveString(context.Background(), "{{Nobody日记本}} {{../etc日记本}}")
	want := DiaryEmpty("Nobody") + " " + DiaryEmpty("../etc")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolve_DiaryReadErrorIsLogged(t *testing.T) {
	root := t.TempDir()
	// A regular file where a directory is expected makes ReadDir fail with
	// something other than not-exist.
	if err := os.WriteFile(filepath.Join(root, "Broken"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zapcore.WarnLevel)
	e, _ := newEngine(t, contextstore.Config{},
		WithDiaryRoot(root),
		WithLogger(observe.NewLoggerFromZap(zap.New(core))),
	)

	got := e.ResolveString(context.Background(), "{{Broken日记本}}")
	if got != DiaryReadError("Broken") {
		t.Errorf("got %q, want %q", got, DiaryReadError("Broken"))
	}
	if logs.Len() != 1 {
		t.Errorf("warn entries = %d, want 1", logs.Len())
	}
}

func TestResolve_RuleSetsApplyInOrderAfterSubstitution(t *testing.T) {
	e, store := newEngine(t, contextstore.Config{
		RulesA: []contextstore.Rule{
			{Pattern: "cat", Replacement: "dog"},
			{Pattern: "dog", Replacement: "wolf"},
		},
		RulesB: []contextstore.Rule{
			{Pattern: "wolf", Replacement: "fox"},
			{Pattern: "", Replacement: "never"},
		},
	})
	store.SetAssetList("Nova", "cat.png")

	got := e.ResolveString(context.Background(), "a cat and {{Nova表情包}}")
	if got != "a fox and fox.png" {
		t.Errorf("got %q, want %q", got, "a fox and fox.png")
	}
}

func TestResolve_PassOrderVarFeedsAssetPass(t *testing.T) {
	e, store := newEngine(t, contextstore.Config{Vars: map[string]string{
		"VarEmoji": "{{Nova表情包}}",
	}})
	store.SetAssetList("Nova", "x.png")

	if got := e.ResolveString(context.Background(), "{{VarEmoji}}"); got != "x.png" {
		t.Errorf("got %q, want x.png", got)
	}
}
