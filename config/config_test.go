package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/promptrelay/contextstore"
)

func TestFromMap_Defaults(t *testing.T) {
	cfg, err := FromMap(context.Background(), map[string]string{})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	if cfg.Weather.Path != "Weather.txt" {
		t.Errorf("Weather.Path = %q, want Weather.txt", cfg.Weather.Path)
	}
	if cfg.Weather.Cron != "0 4 * * *" {
		t.Errorf("Weather.Cron = %q", cfg.Weather.Cron)
	}
	if cfg.Caption.MinLength != 50 || cfg.Caption.Concurrency != 5 {
		t.Errorf("Caption = %+v", cfg.Caption)
	}
	if cfg.Caption.Enabled {
		t.Error("captions should be disabled without ImageModel")
	}
	if cfg.Caption.CachePath != filepath.Join("cache", "imagebase64.json") {
		t.Errorf("Caption.CachePath = %q", cfg.Caption.CachePath)
	}
	if cfg.Template.TimeZone != "Asia/Shanghai" {
		t.Errorf("TimeZone = %q", cfg.Template.TimeZone)
	}
}

func TestFromMap_TypedValues(t *testing.T) {
	cfg, err := FromMap(context.Background(), map[string]string{
		"PORT":               "6005",
		"API_URL":            "https://api.example.com/",
		"WeatherMaxAttempts": "5",
		"WeatherRetryDelay":  "1.5",
		"ImageRetryDelay":    "250ms",
		"ImageModel":         "gemini-flash",
		"ShowBase64":         "false",
		"LogJSON":            "true",
	})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	if cfg.Upstream.URL != "https://api.example.com" {
		t.Errorf("Upstream.URL = %q, want trailing slash trimmed", cfg.Upstream.URL)
	}
	if cfg.Weather.MaxAttempts != 5 {
		t.Errorf("WeatherMaxAttempts = %d", cfg.Weather.MaxAttempts)
	}
	if cfg.Weather.RetryDelay != 1500*time.Millisecond {
		t.Errorf("WeatherRetryDelay = %v", cfg.Weather.RetryDelay)
	}
	if cfg.Caption.RetryDelay != 250*time.Millisecond {
		t.Errorf("ImageRetryDelay = %v", cfg.Caption.RetryDelay)
	}
	if !cfg.Caption.Enabled {
		t.Error("captions should be enabled with ImageModel and ShowBase64=false")
	}
	if !cfg.Observe.LogJSON {
		t.Error("LogJSON not parsed")
	}
}

func TestFromMap_ShowBase64DisablesCaptions(t *testing.T) {
	cfg, err := FromMap(context.Background(), map[string]string{"ImageModel": "m", "ShowBase64": "true"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Caption.Enabled {
		t.Error("ShowBase64=true should disable captions")
	}
}

func TestFromMap_InvalidNumber(t *testing.T) {
	if _, err := FromMap(context.Background(), map[string]string{"ImageConcurrency": "many"}); err == nil {
		t.Fatal("expected error for non-numeric ImageConcurrency")
	}
}

func TestFromMap_VarsAndRules(t *testing.T) {
	cfg, err := FromMap(context.Background(), map[string]string{
		"VarUser":               "Ryan",
		"VarHome":               "",
		"Detector10":            "ten",
		"Detector_Output10":     "X",
		"Detector2":             "two",
		"Detector_Output2":      "Y",
		"Detector3":             "no output",
		"SuperDetector1":        "……",
		"SuperDetector_Output1": "…",
		"DetectorX":             "ignored",
		"Detector_Output4":      "orphan",
	})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	wantVars := map[string]string{"VarUser": "Ryan", "VarHome": ""}
	if diff := cmp.Diff(wantVars, cfg.Template.Vars); diff != "" {
		t.Errorf("Vars mismatch (-want +got):\n%s", diff)
	}

	wantA := []contextstore.Rule{{Pattern: "two", Replacement: "Y"}, {Pattern: "ten", Replacement: "X"}}
	if diff := cmp.Diff(wantA, cfg.RulesA); diff != "" {
		t.Errorf("RulesA mismatch (-want +got):\n%s", diff)
	}
	wantB := []contextstore.Rule{{Pattern: "……", Replacement: "…"}}
	if diff := cmp.Diff(wantB, cfg.RulesB); diff != "" {
		t.Errorf("RulesB mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMap_ExpandsReferences(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(secretPath, []byte("sk-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := FromMap(context.Background(), map[string]string{
		"BASE":    "https://relay.example",
		"API_URL": "${BASE}/openai",
		"API_Key": "secretref:file:" + secretPath,
	})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if cfg.Upstream.URL != "https://relay.example/openai" {
		t.Errorf("API_URL = %q", cfg.Upstream.URL)
	}
	if cfg.Upstream.APIKey != "sk-file" {
		t.Errorf("API_Key = %q", cfg.Upstream.APIKey)
	}
}

func TestValidate(t *testing.T) {
	cfg, _ := FromMap(context.Background(), map[string]string{})
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingSetting) {
		t.Fatalf("Validate() error = %v, want ErrMissingSetting", err)
	}

	cfg, _ = FromMap(context.Background(), map[string]string{
		"Key": "k", "API_URL": "http://u", "API_Key": "a",
	})
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.Template.TimeZone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject an unknown time zone")
	}
}

func TestValidate_ChecksObserveSettings(t *testing.T) {
	cfg, _ := FromMap(context.Background(), map[string]string{
		"Key": "k", "API_URL": "http://u", "API_Key": "a", "LogLevel": "loud",
	})
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject an unknown log level")
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	content := "PORT=7000\nAPI_URL=http://from-file\nVarMood=calm\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("API_URL", "http://from-env")
	t.Setenv("VarExtra", "env-only")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("PORT = %q", cfg.Server.Port)
	}
	if cfg.Upstream.URL != "http://from-env" {
		t.Errorf("API_URL = %q, want environment to win", cfg.Upstream.URL)
	}
	if cfg.Template.Vars["VarMood"] != "calm" || cfg.Template.Vars["VarExtra"] != "env-only" {
		t.Errorf("Vars = %v", cfg.Template.Vars)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("Load() error = %v, want nil for a missing file", err)
	}
}

func TestStoreConfig(t *testing.T) {
	cfg, _ := FromMap(context.Background(), map[string]string{"SystemInfo": "Arch", "VarA": "1"})
	sc := cfg.StoreConfig()
	if sc.Static["SystemInfo"] != "Arch" || sc.Vars["VarA"] != "1" {
		t.Errorf("StoreConfig() = %+v", sc)
	}
}
