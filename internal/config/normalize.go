package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeCapture()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("LIVECATALOG_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.DatabaseName = strings.TrimSpace(c.Store.DatabaseName)
	if c.Store.DatabaseName == "" {
		c.Store.DatabaseName = defaultDatabaseName
	}
	if c.Store.BusyTimeoutMS <= 0 {
		c.Store.BusyTimeoutMS = defaultBusyTimeoutMS
	}
}

func (c *Config) normalizeCapture() {
	c.Capture.Device = strings.TrimSpace(c.Capture.Device)
	if value, ok := os.LookupEnv("LIVECATALOG_DEVICE"); ok && strings.TrimSpace(value) != "" {
		c.Capture.Device = strings.TrimSpace(value)
	}
	if c.Capture.ThumbnailWidth <= 0 {
		c.Capture.ThumbnailWidth = defaultThumbnailWidth
	}
	if strings.TrimSpace(c.Capture.PowerSupplyDir) == "" {
		c.Capture.PowerSupplyDir = defaultPowerSupplyDir
	}
	if strings.TrimSpace(c.Capture.VideoClassDir) == "" {
		c.Capture.VideoClassDir = defaultVideoClassDir
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("LIVECATALOG_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
