package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	lines = append(lines,
		"ImageDir="+filepath.Join(dir, "image"),
		"DiaryDir="+filepath.Join(dir, "dailynote"),
		"CacheDir="+filepath.Join(dir, "cache"),
		"WeatherInfo="+filepath.Join(dir, "Weather.txt"),
		"LogLevel=error",
	)
	path := filepath.Join(dir, "config.env")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	t.Cleanup(func() { RootCmd.SetArgs(nil) })
	err := RootCmd.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	path := writeConfig(t, "VarUser=Nova")

	out, err := run(t, "--config", path, "resolve", "hi", "{{VarUser}}")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out != "hi Nova" {
		t.Errorf("out = %q, want %q", out, "hi Nova")
	}
}

func TestRefreshWeatherCommand_Incomplete(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "--config", path, "refresh", "weather")
	if err == nil {
		t.Fatal("expected error without weather settings")
	}
	if !strings.Contains(out, "天气服务配置不完整") {
		t.Errorf("out = %q", out)
	}
}

func TestServeCommand_RequiresKey(t *testing.T) {
	path := writeConfig(t, "API_URL=http://127.0.0.1:1", "API_Key=k")

	if _, err := run(t, "--config", path, "serve"); err == nil {
		t.Fatal("expected missing Key error")
	}
}
