package capture

import (
	"context"
	"image"
)

// TrackKind distinguishes audio from video tracks.
type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// Device describes a video input the host exposes.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Constraints are the stream parameters requested at acquisition.
type Constraints struct {
	Width     int
	Height    int
	FrameRate int
	Audio     bool
}

// Source is the host camera API.
type Source interface {
	// Devices lists available video inputs.
	Devices(ctx context.Context) ([]Device, error)
	// Open starts a stream on the device. Failures wrap ErrPermissionDenied
	// or ErrDeviceUnavailable.
	Open(ctx context.Context, deviceID string, c Constraints) (Stream, error)
}

// Stream is a live camera (and optional microphone) stream.
type Stream interface {
	Tracks() []Track
	// Snapshot returns the current video frame.
	Snapshot(ctx context.Context) (image.Image, error)
	Close() error
}

// Track is one media track of a stream.
type Track interface {
	Kind() TrackKind
	Enabled() bool
	SetEnabled(enabled bool)
	Stop()
}
