package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"livecatalog/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "livecatalog")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "livecatalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.CaptureInterval() != 5*time.Second {
		t.Fatalf("expected 5s default interval, got %s", cfg.CaptureInterval())
	}
	if cfg.StorageWarnBytes() != 30<<20 || cfg.StorageLimitBytes() != 50<<20 {
		t.Fatalf("unexpected storage thresholds: warn=%d limit=%d", cfg.StorageWarnBytes(), cfg.StorageLimitBytes())
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected console log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "livecatalog.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Capture struct {
			IntervalMS int     `toml:"interval_ms"`
			Quality    float64 `toml:"quality"`
		} `toml:"capture"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Capture.IntervalMS = 2500
	custom.Capture.Quality = 0.5
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("expected data dir from file, got %q", cfg.Paths.DataDir)
	}
	if cfg.Capture.IntervalMS != 2500 {
		t.Fatalf("expected interval 2500, got %d", cfg.Capture.IntervalMS)
	}
	if cfg.Capture.Quality != 0.5 {
		t.Fatalf("expected quality 0.5, got %v", cfg.Capture.Quality)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
	if cfg.Capture.Width != config.Default().Capture.Width {
		t.Fatalf("expected default width to survive partial file, got %d", cfg.Capture.Width)
	}
}

func TestEnvOverridesDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LIVECATALOG_DATA_DIR", dir)
	t.Setenv("LIVECATALOG_LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DataDir != dir {
		t.Fatalf("expected data dir from env, got %q", cfg.Paths.DataDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected log level from env, got %q", cfg.Logging.Level)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "interval_ms") {
		t.Fatalf("sample config missing capture interval: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "livecatalog") {
		t.Fatalf("expected data dir to contain livecatalog, got %q", cfg.Paths.DataDir)
	}
	if cfg.Capture.IntervalMS != config.Default().Capture.IntervalMS {
		t.Fatalf("sample interval drifted from defaults: %d", cfg.Capture.IntervalMS)
	}
}

func TestLockPathSanitizesDevice(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/data"
	if got := cfg.LockPath("/dev/video0"); got != filepath.Join("/data", "record-dev_video0.lock") {
		t.Fatalf("unexpected lock path %q", got)
	}
	if got := cfg.LockPath(""); got != filepath.Join("/data", "record-default.lock") {
		t.Fatalf("unexpected default lock path %q", got)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero interval", func(c *config.Config) { c.Capture.IntervalMS = 0 }},
		{"quality above one", func(c *config.Config) { c.Capture.Quality = 1.5 }},
		{"zero quality", func(c *config.Config) { c.Capture.Quality = 0 }},
		{"limit below warn", func(c *config.Config) { c.Storage.LimitMiB = c.Storage.WarnMiB - 1 }},
		{"negative free floor", func(c *config.Config) { c.Storage.MinFreeMiB = -1 }},
		{"database path", func(c *config.Config) { c.Store.DatabaseName = "nested/db.sqlite" }},
		{"editor quality", func(c *config.Config) { c.Editor.Quality = 0 }},
		{"zero width", func(c *config.Config) { c.Capture.Width = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
