package testsupport

import (
	"path/filepath"
	"testing"

	"livecatalog/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Adaptive capture, hotplug monitoring, and the free-space floor are off so
// tests do not depend on the host.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.MinFreeMiB = 0
	cfgVal.Capture.Adaptive = false
	cfgVal.Capture.Hotplug = false
	cfgVal.Capture.Audio = false
	cfgVal.Capture.Device = "test-camera"
	cfgVal.Capture.PowerSupplyDir = filepath.Join(base, "power_supply")
	cfgVal.Capture.VideoClassDir = filepath.Join(base, "video4linux")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCaptureInterval overrides the capture interval in milliseconds.
func WithCaptureInterval(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.IntervalMS = ms
	}
}

// WithStorageThresholds overrides the session storage warning and limit.
func WithStorageThresholds(warnMiB, limitMiB int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.WarnMiB = warnMiB
		b.cfg.Storage.LimitMiB = limitMiB
	}
}

// WithResolution overrides the capture target resolution.
func WithResolution(width, height int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Width = width
		b.cfg.Capture.Height = height
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
