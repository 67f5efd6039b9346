package template

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jonwraymond/promptrelay/contextstore"
	"github.com/jonwraymond/promptrelay/observe"
)

// Fixed fallbacks.
const (
	WeatherUnavailable  = "天气信息不可用"
	SystemInfoMissing   = "未配置系统信息"
	notConfiguredPrefix = "未配置"

	// DiarySeparator joins diary entries.
	DiarySeparator = "\n\n---\n\n"

	// AssetSuffix and DiarySuffix end asset-list and diary placeholders.
	AssetSuffix = "表情包"
	DiarySuffix = "日记本"

	// CommonAgent is the agent referenced inside the EmojiPrompt fact.
	CommonAgent = "通用"

	emojiPromptToken = "{{EmojiPrompt}}"
)

var (
	assetPattern = regexp.MustCompile(`\{\{([^{}]+?)` + AssetSuffix + `\}\}`)
	diaryPattern = regexp.MustCompile(`\{\{([^{}]+?)` + DiarySuffix + `\}\}`)
)

// NotConfigured is the placeholder for an empty reserved-prefix fact.
func NotConfigured(name string) string {
	return notConfiguredPrefix + name
}

// AssetUnavailable is the placeholder for an unknown agent's asset list.
func AssetUnavailable(agent string) string {
	return agent + AssetSuffix + "列表不可用"
}

// DiaryEmpty is the placeholder for a character without diary entries.
func DiaryEmpty(character string) string {
	return character + DiarySuffix + "为空或不存在"
}

// DiaryReadError is the placeholder for a failed diary read.
func DiaryReadError(character string) string {
	return "读取" + character + "日记时出错"
}

// Engine resolves placeholders against a context store.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: never fails; problems become fixed placeholder text.
type Engine struct {
	store     *contextstore.Store
	diaryRoot string
	loc       *time.Location
	now       func() time.Time
	logger    observe.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDiaryRoot sets the directory holding one sub-directory per character.
func WithDiaryRoot(dir string) Option {
	return func(e *Engine) { e.diaryRoot = dir }
}

// WithLocation sets the time zone for time facts.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger used for diary read failures.
func WithLogger(l observe.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.With(observe.Op{Component: "template"})
		}
	}
}

// New creates an Engine.
func New(store *contextstore.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		loc:    time.Local,
		now:    time.Now,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve resolves text. A nil text yields "".
func (e *Engine) Resolve(ctx context.Context, text *string) string {
	if text == nil {
		return ""
	}
	return e.ResolveString(ctx, *text)
}

// ResolveString runs every pass over text.
func (e *Engine) ResolveString(ctx context.Context, text string) string {
	if text == "" {
		return text
	}
	snap := e.store.Snapshot()

	text = e.Now().Apply(text)
	text = resolveFixed(text, snap)
	text = resolveVars(text, snap.Vars)
	text = resolveEmojiPrompt(text, snap)
	text = resolveAssets(text, snap.Assets)
	text = e.resolveDiaries(ctx, text)
	text = applyRules(text, snap.RulesA)
	text = applyRules(text, snap.RulesB)
	return text
}

// Now returns the time facts for the current instant.
func (e *Engine) Now() TimeFacts {
	return NewTimeFacts(e.now().In(e.loc))
}

func resolveFixed(text string, snap contextstore.Snapshot) string {
	if strings.Contains(text, "{{WeatherInfo}}") {
		weather := snap.Weather
		if weather == "" {
			weather = WeatherUnavailable
		}
		text = strings.ReplaceAll(text, "{{WeatherInfo}}", weather)
	}
	if strings.Contains(text, "{{SystemInfo}}") {
		info := snap.Static["SystemInfo"]
		if info == "" {
			info = SystemInfoMissing
		}
		text = strings.ReplaceAll(text, "{{SystemInfo}}", info)
	}
	return text
}

func resolveVars(text string, vars []contextstore.Fact) string {
	for _, f := range vars {
		token := "{{" + f.Name + "}}"
		if !strings.Contains(text, token) {
			continue
		}
		value := f.Value
		if value == "" {
			value = NotConfigured(f.Name)
		}
		text = strings.ReplaceAll(text, token, value)
	}
	return text
}

// resolveEmojiPrompt expands {{EmojiPrompt}}. The inner common asset list
// is resolved inside the fact before the fact replaces its token.
func resolveEmojiPrompt(text string, snap contextstore.Snapshot) string {
	if !strings.Contains(text, emojiPromptToken) {
		return text
	}
	prompt := snap.Static["EmojiPrompt"]
	if prompt == "" {
		prompt = NotConfigured("EmojiPrompt")
	}

	inner := "{{" + CommonAgent + AssetSuffix + "}}"
	if strings.Contains(prompt, inner) {
		list, ok := snap.Assets[CommonAgent]
		if !ok {
			list = AssetUnavailable(CommonAgent)
		}
		prompt = strings.ReplaceAll(prompt, inner, list)
	}
	return strings.ReplaceAll(text, emojiPromptToken, prompt)
}

func resolveAssets(text string, assets map[string]string) string {
	if !strings.Contains(text, AssetSuffix) {
		return text
	}
	return assetPattern.ReplaceAllStringFunc(text, func(m string) string {
		agent := assetPattern.FindStringSubmatch(m)[1]
		if list, ok := assets[agent]; ok {
			return list
		}
		return AssetUnavailable(agent)
	})
}

func (e *Engine) resolveDiaries(ctx context.Context, text string) string {
	if !strings.Contains(text, DiarySuffix) {
		return text
	}

	expanded := make(map[string]string)
	return diaryPattern.ReplaceAllStringFunc(text, func(m string) string {
		character := diaryPattern.FindStringSubmatch(m)[1]
		if body, ok := expanded[character]; ok {
			return body
		}
		body := e.readDiary(ctx, character)
		expanded[character] = body
		return body
	})
}

func (e *Engine) readDiary(ctx context.Context, character string) string {
	if !safeName(character) {
		return DiaryEmpty(character)
	}
	dir := filepath.Join(e.diaryRoot, character)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return DiaryEmpty(character)
	}
	if err != nil {
		e.logger.Warn(ctx, "diary directory unreadable", observe.F("character", character), observe.F("error", err))
		return DiaryReadError(character)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".txt", ".md":
			names = append(names, ent.Name())
		}
	}
	if len(names) == 0 {
		return DiaryEmpty(character)
	}
	sort.Strings(names)

	bodies := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			e.logger.Warn(ctx, "diary entry unreadable",
				observe.F("character", character), observe.F("file", name), observe.F("error", err))
			return DiaryReadError(character)
		}
		bodies = append(bodies, string(data))
	}
	return strings.Join(bodies, DiarySeparator)
}

// safeName rejects names that would escape the diary root.
func safeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func applyRules(text string, rules []contextstore.Rule) string {
	for _, r := range rules {
		if r.Pattern == "" {
			continue
		}
		text = strings.ReplaceAll(text, r.Pattern, r.Replacement)
	}
	return text
}
