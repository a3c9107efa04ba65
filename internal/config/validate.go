package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateEditor(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.ContainsAny(c.Store.DatabaseName, `/\`) {
		return errors.New("store.database_name must be a file name, not a path")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if err := ensurePositiveMap(map[string]int{
		"storage.warn_mib":      c.Storage.WarnMiB,
		"storage.limit_mib":     c.Storage.LimitMiB,
		"store.busy_timeout_ms": c.Store.BusyTimeoutMS,
	}); err != nil {
		return err
	}
	if c.Storage.LimitMiB < c.Storage.WarnMiB {
		return errors.New("storage.limit_mib must be greater than or equal to storage.warn_mib")
	}
	if c.Storage.MinFreeMiB < 0 {
		return errors.New("storage.min_free_mib must be >= 0")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if err := ensurePositiveMap(map[string]int{
		"capture.interval_ms":     c.Capture.IntervalMS,
		"capture.width":           c.Capture.Width,
		"capture.height":          c.Capture.Height,
		"capture.frame_rate":      c.Capture.FrameRate,
		"capture.thumbnail_width": c.Capture.ThumbnailWidth,
	}); err != nil {
		return err
	}
	if c.Capture.Quality <= 0 || c.Capture.Quality > 1 {
		return errors.New("capture.quality must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateEditor() error {
	if c.Editor.Quality <= 0 || c.Editor.Quality > 1 {
		return errors.New("editor.quality must be in (0, 1]")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
