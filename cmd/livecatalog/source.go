package main

import (
	"log/slog"

	"livecatalog/internal/capture"
	"livecatalog/internal/capture/gstsource"
	"livecatalog/internal/config"
	"livecatalog/internal/deps"
)

// sourceFactory builds the camera source; tests swap it for a fake.
var sourceFactory = func(cfg *config.Config, logger *slog.Logger) capture.Source {
	return gstsource.New(cfg.Capture.VideoClassDir, logger)
}

// elementLookup reports installed GStreamer elements; tests swap it.
var elementLookup deps.Lookup = gstsource.ElementAvailable

// captureSettings returns the configured settings, or the adaptive policy's
// choice for the host's battery when adaptive capture is on. The policy
// never asks for more than the configured resolution.
func captureSettings(cfg *config.Config, power capture.PowerReader) capture.CaptureSettings {
	configured := capture.SettingsFromConfig(cfg)
	if !cfg.Capture.Adaptive {
		return configured
	}
	adaptive := capture.Policy(power.Conditions(capture.Conditions{Mobile: cfg.Capture.Mobile}))
	adaptive.Interval = max(adaptive.Interval, configured.Interval)
	adaptive.Quality = min(adaptive.Quality, configured.Quality)
	if adaptive.Width > configured.Width || adaptive.Height > configured.Height {
		adaptive.Width, adaptive.Height = configured.Width, configured.Height
	}
	adaptive.FrameRate = min(adaptive.FrameRate, configured.FrameRate)
	adaptive.ThumbnailWidth = configured.ThumbnailWidth
	return adaptive
}
