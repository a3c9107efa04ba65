package capture

import (
	"strings"
	"time"

	"livecatalog/internal/config"
)

// CaptureSettings are the parameters applied to each capture.
type CaptureSettings struct {
	Interval       time.Duration `json:"interval"`
	Quality        float64       `json:"quality"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	FrameRate      int           `json:"frameRate"`
	ThumbnailWidth int           `json:"thumbnailWidth"`
}

// SettingsFromConfig returns the configured capture settings.
func SettingsFromConfig(cfg *config.Config) CaptureSettings {
	return CaptureSettings{
		Interval:       cfg.CaptureInterval(),
		Quality:        cfg.Capture.Quality,
		Width:          cfg.Capture.Width,
		Height:         cfg.Capture.Height,
		FrameRate:      cfg.Capture.FrameRate,
		ThumbnailWidth: cfg.Capture.ThumbnailWidth,
	}
}

// Conditions describe the device state the adaptive policy reacts to.
type Conditions struct {
	// BatteryLevel is 0..100; negative when unknown.
	BatteryLevel float64
	Charging     bool
	// EffectiveType is the connection class: slow-2g, 2g, 3g, 4g, or empty.
	EffectiveType string
	// DownlinkMbps is the estimated downlink; zero when unknown.
	DownlinkMbps float64
	Mobile       bool
}

const (
	lowBatteryPercent      = 20
	criticalBatteryPercent = 15
	slowDownlinkMbps       = 1.0
)

var (
	desktopSettings = CaptureSettings{Interval: 5 * time.Second, Quality: 0.85, Width: 1280, Height: 720, FrameRate: 30, ThumbnailWidth: 160}
	mobileSettings  = CaptureSettings{Interval: 5 * time.Second, Quality: 0.8, Width: 1280, Height: 720, FrameRate: 24, ThumbnailWidth: 120}
)

// Policy returns the capture settings for the given conditions. Degrading
// battery or connection widens the interval and lowers quality and
// resolution; it never tightens them.
func Policy(c Conditions) CaptureSettings {
	s := desktopSettings
	if c.Mobile {
		s = mobileSettings
	}

	if c.BatteryLevel >= 0 && !c.Charging {
		switch {
		case c.BatteryLevel <= criticalBatteryPercent:
			s.Interval = 15 * time.Second
			s.Quality = 0.5
			s.Width, s.Height = 640, 480
			s.FrameRate = 10
		case c.BatteryLevel <= lowBatteryPercent:
			s.Interval = 10 * time.Second
			s.Quality = 0.6
			s.Width, s.Height = 960, 540
			s.FrameRate = 15
		}
	}

	if SlowConnection(c.EffectiveType, c.DownlinkMbps) {
		s.Interval = max(s.Interval, 8*time.Second)
		s.Quality = min(s.Quality, 0.6)
		if s.Width > 854 {
			s.Width, s.Height = 854, 480
		}
		s.FrameRate = min(s.FrameRate, 15)
	}
	return s
}

// SlowConnection reports whether a connection counts as slow: a 2G/3G
// effective type or a known downlink under 1 Mbps.
func SlowConnection(effectiveType string, downlinkMbps float64) bool {
	switch strings.ToLower(strings.TrimSpace(effectiveType)) {
	case "slow-2g", "2g", "3g":
		return true
	}
	return downlinkMbps > 0 && downlinkMbps < slowDownlinkMbps
}
