package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Chart.NumGradings != 2 {
		t.Errorf("NumGradings = %d, want 2", cfg.Chart.NumGradings)
	}
	if cfg.Chart.OffsetSize != 45 {
		t.Errorf("OffsetSize = %v, want 45", cfg.Chart.OffsetSize)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Addr = %s", cfg.Server.Addr)
	}
	if cfg.Cache.TTL.Std() != 24*time.Hour {
		t.Errorf("TTL = %v", cfg.Cache.TTL.Std())
	}
	if cfg.Log.ParsedLevel() != log.InfoLevel {
		t.Errorf("level = %v", cfg.Log.ParsedLevel())
	}
}

func TestParseTOML(t *testing.T) {
	data := `
[chart]
num_gradings = 3

[server]
addr = ":9000"
metrics = true

[cache]
redis_addr = "localhost:6379"
ttl = "90m"

[log]
level = "debug"
`
	cfg, err := Parse([]byte(data), "toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Chart.NumGradings != 3 {
		t.Errorf("NumGradings = %d", cfg.Chart.NumGradings)
	}
	if cfg.Chart.OffsetSize != 45 {
		t.Errorf("OffsetSize default not applied: %v", cfg.Chart.OffsetSize)
	}
	if cfg.Server.Addr != ":9000" || !cfg.Server.Metrics {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Cache.TTL.Std() != 90*time.Minute {
		t.Errorf("TTL = %v", cfg.Cache.TTL.Std())
	}
	if cfg.Log.ParsedLevel() != log.DebugLevel {
		t.Errorf("level = %v", cfg.Log.ParsedLevel())
	}
	opts := cfg.ChartOptions()
	if opts.NumGradings != 3 || opts.OffsetSize != 45 {
		t.Errorf("ChartOptions = %+v", opts)
	}
}

func TestParseYAML(t *testing.T) {
	data := `
chart:
  offset_size: 30
store:
  mongo_uri: mongodb://localhost:27017
  database: charts
cache:
  ttl: 1h
`
	cfg, err := Parse([]byte(data), "yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Chart.OffsetSize != 30 || cfg.Chart.NumGradings != 2 {
		t.Errorf("Chart = %+v", cfg.Chart)
	}
	if cfg.Store.MongoURI != "mongodb://localhost:27017" || cfg.Store.Database != "charts" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Cache.TTL.Std() != time.Hour {
		t.Errorf("TTL = %v", cfg.Cache.TTL.Std())
	}

	if _, err := Parse(nil, "yaml"); err != nil {
		t.Errorf("empty YAML should parse to defaults: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
		code   errors.Code
	}{
		{"unknown toml key", "[chart]\ncolour = 1\n", "toml", errors.ErrCodeInvalidInput},
		{"unknown yaml key", "chart:\n  colour: 1\n", "yaml", errors.ErrCodeInvalidFormat},
		{"bad toml", "[chart\n", "toml", errors.ErrCodeInvalidFormat},
		{"bad duration", "[cache]\nttl = \"soon\"\n", "toml", errors.ErrCodeInvalidFormat},
		{"too few gradings", "[chart]\nnum_gradings = 1\n", "toml", errors.ErrCodeInvalidInput},
		{"format", "", "json", errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("error %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"config.toml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Server.Addr = ":1234"
			cfg.Cache.TTL = Duration(5 * time.Minute)
			path := filepath.Join(dir, "nested", name)
			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, loaded, err := LoadFromPath(path)
			if err != nil {
				t.Fatalf("LoadFromPath: %v", err)
			}
			if loaded != path {
				t.Errorf("path = %s", loaded)
			}
			if got.Server.Addr != ":1234" || got.Cache.TTL.Std() != 5*time.Minute {
				t.Errorf("round trip = %+v", got)
			}
		})
	}
}

func TestFindConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))

	if got := FindConfigPath(); got != "" {
		t.Errorf("FindConfigPath() = %s, want none", got)
	}

	xdg := filepath.Join(dir, "xdg", ConfigDirName, "config.yaml")
	mustWrite(t, xdg)
	if got := FindConfigPath(); got != xdg {
		t.Errorf("FindConfigPath() = %s, want %s", got, xdg)
	}

	mustWrite(t, filepath.Join(dir, ConfigFileName))
	if got := FindConfigPath(); filepath.Base(got) != ConfigFileName {
		t.Errorf("working directory config should win, got %s", got)
	}

	explicit := filepath.Join(dir, "explicit.toml")
	mustWrite(t, explicit)
	t.Setenv(EnvConfigPath, explicit)
	if got := FindConfigPath(); got != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", got, explicit)
	}

	cfg, path, err := Load()
	if err != nil || path != explicit || cfg.Server.Addr != DefaultAddr {
		t.Errorf("Load() = %+v, %s, %v", cfg, path, err)
	}
}

func mustWrite(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}
