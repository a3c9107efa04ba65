package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Store contains configuration for the local structured store.
type Store struct {
	DatabaseName  string `toml:"database_name"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// Storage contains the per-session storage thresholds and host free-space floor.
type Storage struct {
	// WarnMiB is the session storage level that raises a UI warning.
	WarnMiB int `toml:"warn_mib"`
	// LimitMiB is the soft cap; crossing it is reported, recording continues.
	LimitMiB int `toml:"limit_mib"`
	// MinFreeMiB is the free space the data directory needs before the store opens.
	MinFreeMiB int `toml:"min_free_mib"`
}

// Capture contains device and frame-emission settings.
type Capture struct {
	Device         string  `toml:"device"`
	IntervalMS     int     `toml:"interval_ms"`
	Quality        float64 `toml:"quality"`
	Width          int     `toml:"width"`
	Height         int     `toml:"height"`
	FrameRate      int     `toml:"frame_rate"`
	ThumbnailWidth int     `toml:"thumbnail_width"`
	Audio          bool    `toml:"audio"`
	Adaptive       bool    `toml:"adaptive"`
	Mobile         bool    `toml:"mobile"`
	PowerSupplyDir string  `toml:"power_supply_dir"`
	VideoClassDir  string  `toml:"video_class_dir"`
	Hotplug        bool    `toml:"hotplug"`
}

// Editor contains configuration for the frame image editor.
type Editor struct {
	Quality float64 `toml:"quality"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for livecatalog.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Store: database file and SQLite busy timeout
//   - Storage: session storage warning/limit and free-space floor
//   - Capture: camera device, interval, quality, resolution, adaptive policy
//   - Editor: output quality for edited frames
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Store   Store   `toml:"store"`
	Storage Storage `toml:"storage"`
	Capture Capture `toml:"capture"`
	Editor  Editor  `toml:"editor"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/livecatalog/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("livecatalog.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the absolute path of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, c.Store.DatabaseName)
}

// LockPath returns the lock file guarding recordings for a capture device.
func (c *Config) LockPath(device string) string {
	name := strings.Trim(strings.ReplaceAll(device, string(filepath.Separator), "_"), "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(c.Paths.DataDir, "record-"+name+".lock")
}

// CaptureInterval returns the configured frame-emission interval.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.Capture.IntervalMS) * time.Millisecond
}

// StorageWarnBytes returns the session storage warning threshold in bytes.
func (c *Config) StorageWarnBytes() int64 {
	return int64(c.Storage.WarnMiB) << 20
}

// StorageLimitBytes returns the session storage soft cap in bytes.
func (c *Config) StorageLimitBytes() int64 {
	return int64(c.Storage.LimitMiB) << 20
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
