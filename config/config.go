package config

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Shanghai must resolve on hosts without zoneinfo

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/jonwraymond/promptrelay/contextstore"
	"github.com/jonwraymond/promptrelay/observe"
	"github.com/jonwraymond/promptrelay/secret"
)

// DefaultPath is the dotenv file read when no path is given.
const DefaultPath = "config.env"

// ErrMissingSetting is wrapped by Validate for each required key left empty.
var ErrMissingSetting = errors.New("config: missing required setting")

// Config is the full promptrelay configuration.
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Weather  WeatherConfig
	Caption  CaptionConfig
	Paths    PathsConfig
	Template TemplateConfig
	Observe  ObserveConfig

	// RulesA and RulesB are the Detector and SuperDetector rule sets.
	RulesA []contextstore.Rule
	RulesB []contextstore.Rule
}

// ServerConfig configures the inbound listener.
type ServerConfig struct {
	Port            string        // PORT
	Key             string        // Key: bearer token clients must present
	JWTSecret       string        // JWTSecret: optional HS256 secret
	ShutdownTimeout time.Duration // ShutdownTimeout
}

// UpstreamConfig configures the chat-completion API.
type UpstreamConfig struct {
	URL     string        // API_URL
	APIKey  string        // API_Key
	Timeout time.Duration // UpstreamTimeout: per refresh attempt
}

// WeatherConfig configures the weather refresh.
type WeatherConfig struct {
	Model       string        // WeatherModel
	Prompt      string        // WeatherPrompt
	Path        string        // WeatherInfo: persisted weather file
	Cron        string        // WeatherCron
	MaxAttempts int           // WeatherMaxAttempts
	RetryDelay  time.Duration // WeatherRetryDelay
	UseSearch   bool          // WeatherUseSearch: offer the google_search tool
}

// CaptionConfig configures image captioning.
type CaptionConfig struct {
	Enabled     bool          // false when ShowBase64 is true or ImageModel is empty
	Model       string        // ImageModel
	Prompt      string        // ImagePrompt
	MaxTokens   int           // ImageModelOutputMaxTokens
	MinLength   int           // ImageMinLength
	Concurrency int           // ImageConcurrency
	MaxAttempts int           // ImageMaxAttempts
	RetryDelay  time.Duration // ImageRetryDelay
	Marker      string        // ImageMarker: empty accepts the whole reply
	CachePath   string        // ImageCache
}

// PathsConfig locates on-disk state.
type PathsConfig struct {
	ImageDir string // ImageDir: one sub-directory per agent
	DiaryDir string // DiaryDir: one sub-directory per character
	CacheDir string // CacheDir: persisted asset lists
}

// TemplateConfig feeds the template engine and the context store.
type TemplateConfig struct {
	TimeZone    string            // TimeZone
	SystemInfo  string            // SystemInfo
	EmojiPrompt string            // EmojiPrompt
	Vars        map[string]string // every Var* key
}

// ObserveConfig configures logging, tracing and metrics.
type ObserveConfig struct {
	LogLevel        string  // LogLevel
	LogJSON         bool    // LogJSON
	TraceExporter   string  // TraceExporter: none disables tracing
	TraceSamplePct  float64 // TraceSamplePct
	MetricsExporter string  // MetricsExporter: none disables metrics
}

// Load reads path (DefaultPath when empty), overlays the process
// environment, resolves references and builds a Config. A missing file is
// not an error; the environment alone may configure the relay.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	file, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return FromMap(context.Background(), merge(file, os.Environ()))
}

// merge overlays environ onto file values for the keys promptrelay reads.
func merge(file map[string]string, environ []string) map[string]string {
	out := make(map[string]string, len(file))
	for k, v := range file {
		out[k] = v
	}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, inFile := file[k]; inFile || knownKey(k) {
			out[k] = v
		}
	}
	return out
}

func knownKey(k string) bool {
	if _, ok := knownKeys[k]; ok {
		return true
	}
	return strings.HasPrefix(k, contextstore.VarPrefix) ||
		strings.HasPrefix(k, detectorPrefix) ||
		strings.HasPrefix(k, superDetectorPrefix)
}

var knownKeys = map[string]struct{}{
	"PORT": {}, "Key": {}, "JWTSecret": {}, "ShutdownTimeout": {},
	"API_URL": {}, "API_Key": {}, "UpstreamTimeout": {},
	"WeatherModel": {}, "WeatherPrompt": {}, "WeatherInfo": {}, "WeatherCron": {},
	"WeatherMaxAttempts": {}, "WeatherRetryDelay": {}, "WeatherUseSearch": {},
	"ImageModel": {}, "ImagePrompt": {}, "ImageModelOutputMaxTokens": {}, "ImageMinLength": {},
	"ImageConcurrency": {}, "ImageMaxAttempts": {}, "ImageRetryDelay": {}, "ImageMarker": {},
	"ImageCache": {}, "ShowBase64": {},
	"ImageDir": {}, "DiaryDir": {}, "CacheDir": {},
	"TimeZone": {}, "SystemInfo": {}, "EmojiPrompt": {},
	"LogLevel": {}, "LogJSON": {}, "TraceExporter": {}, "TraceSamplePct": {}, "MetricsExporter": {},
}

// FromMap builds a Config from raw key/value settings.
func FromMap(ctx context.Context, raw map[string]string) (*Config, error) {
	lookup := func(name string) (string, bool) {
		if v, ok := raw[name]; ok {
			return v, true
		}
		return os.LookupEnv(name)
	}
	resolver := secret.NewResolver(lookup, true, secret.FileProvider{}, secret.EnvProvider{})
	defer resolver.Close()

	vals, err := resolver.ResolveMap(ctx, raw)
	if err != nil {
		return nil, err
	}

	p := parser{vals: vals}
	cfg := &Config{
		Server: ServerConfig{
			Port:            p.str("PORT", "3000"),
			Key:             p.str("Key", ""),
			JWTSecret:       p.str("JWTSecret", ""),
			ShutdownTimeout: p.duration("ShutdownTimeout", 10*time.Second),
		},
		Upstream: UpstreamConfig{
			URL:     strings.TrimRight(p.str("API_URL", ""), "/"),
			APIKey:  p.str("API_Key", ""),
			Timeout: p.duration("UpstreamTimeout", 2*time.Minute),
		},
		Weather: WeatherConfig{
			Model:       p.str("WeatherModel", ""),
			Prompt:      p.str("WeatherPrompt", ""),
			Path:        p.str("WeatherInfo", "Weather.txt"),
			Cron:        p.str("WeatherCron", "0 4 * * *"),
			MaxAttempts: p.integer("WeatherMaxAttempts", 3),
			RetryDelay:  p.duration("WeatherRetryDelay", 5*time.Second),
			UseSearch:   p.boolean("WeatherUseSearch", true),
		},
		Paths: PathsConfig{
			ImageDir: p.str("ImageDir", "image"),
			DiaryDir: p.str("DiaryDir", "dailynote"),
			CacheDir: p.str("CacheDir", "cache"),
		},
		Template: TemplateConfig{
			TimeZone:    p.str("TimeZone", "Asia/Shanghai"),
			SystemInfo:  p.str("SystemInfo", ""),
			EmojiPrompt: p.str("EmojiPrompt", ""),
			Vars:        make(map[string]string),
		},
		Observe: ObserveConfig{
			LogLevel:        p.str("LogLevel", "info"),
			LogJSON:         p.boolean("LogJSON", false),
			TraceExporter:   p.str("TraceExporter", "none"),
			TraceSamplePct:  p.float("TraceSamplePct", 1),
			MetricsExporter: p.str("MetricsExporter", "none"),
		},
	}

	cfg.Caption = CaptionConfig{
		Model:       p.str("ImageModel", ""),
		Prompt:      p.str("ImagePrompt", ""),
		MaxTokens:   p.integer("ImageModelOutputMaxTokens", 1024),
		MinLength:   p.integer("ImageMinLength", 50),
		Concurrency: p.integer("ImageConcurrency", 5),
		MaxAttempts: p.integer("ImageMaxAttempts", 3),
		RetryDelay:  p.duration("ImageRetryDelay", time.Second),
		Marker:      p.str("ImageMarker", ""),
		CachePath:   p.str("ImageCache", filepath.Join(cfg.Paths.CacheDir, "imagebase64.json")),
	}
	cfg.Caption.Enabled = !p.boolean("ShowBase64", false) && cfg.Caption.Model != ""

	for k, v := range vals {
		if strings.HasPrefix(k, contextstore.VarPrefix) {
			cfg.Template.Vars[k] = v
		}
	}
	cfg.RulesA = rules(vals, detectorPrefix, detectorOutputPrefix)
	cfg.RulesB = rules(vals, superDetectorPrefix, superDetectorOutputPrefix)

	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// Validate reports every required setting that is empty.
func (c *Config) Validate() error {
	var missing []string
	if c.Server.Port == "" {
		missing = append(missing, "PORT")
	}
	if c.Server.Key == "" && c.Server.JWTSecret == "" {
		missing = append(missing, "Key")
	}
	if c.Upstream.URL == "" {
		missing = append(missing, "API_URL")
	}
	if c.Upstream.APIKey == "" {
		missing = append(missing, "API_Key")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrMissingSetting, "%s", strings.Join(missing, ", "))
	}
	if c.Caption.Concurrency <= 0 {
		return errors.Newf("config: ImageConcurrency must be positive, got %d", c.Caption.Concurrency)
	}
	if _, err := time.LoadLocation(c.Template.TimeZone); err != nil {
		return errors.Wrapf(err, "config: TimeZone %q", c.Template.TimeZone)
	}
	oc := c.ObserveConfig("promptrelay", "")
	return oc.Validate()
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Template.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ObserveConfig converts the observability settings.
func (c *Config) ObserveConfig(service, version string) observe.Config {
	return observe.Config{
		ServiceName: service,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.TraceExporter != "none",
			Exporter:  c.Observe.TraceExporter,
			SamplePct: c.Observe.TraceSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.MetricsExporter != "none",
			Exporter: c.Observe.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Observe.LogLevel,
			JSON:    c.Observe.LogJSON,
		},
	}
}

// StoreConfig returns the seed for the context store.
func (c *Config) StoreConfig() contextstore.Config {
	return contextstore.Config{
		Static: map[string]string{
			"SystemInfo":  c.Template.SystemInfo,
			"EmojiPrompt": c.Template.EmojiPrompt,
		},
		Vars:   c.Template.Vars,
		RulesA: c.RulesA,
		RulesB: c.RulesB,
	}
}

const (
	detectorPrefix            = "Detector"
	detectorOutputPrefix      = "Detector_Output"
	superDetectorPrefix       = "SuperDetector"
	superDetectorOutputPrefix = "SuperDetector_Output"
)

// rules collects <prefix><N> / <outPrefix><N> pairs ordered by N. A pair
// without a pattern or without an output key is skipped.
func rules(vals map[string]string, prefix, outPrefix string) []contextstore.Rule {
	type numbered struct {
		n    int
		rule contextstore.Rule
	}
	var found []numbered
	for k, pattern := range vals {
		suffix, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || pattern == "" {
			continue
		}
		out, ok := vals[outPrefix+suffix]
		if !ok {
			continue
		}
		found = append(found, numbered{n: n, rule: contextstore.Rule{Pattern: pattern, Replacement: out}})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	out := make([]contextstore.Rule, len(found))
	for i, f := range found {
		out[i] = f.rule
	}
	return out
}

// parser reads typed values and keeps the first conversion error.
type parser struct {
	vals map[string]string
	err  error
}

func (p *parser) str(key, def string) string {
	if v, ok := p.vals[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.vals[key])
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(p.vals[key])
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return f
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(p.vals[key])
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

// duration accepts Go durations ("1m30s") or a plain number of seconds.
func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.vals[key])
	if v == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = errors.Wrapf(err, "config: %s", key)
	}
}
