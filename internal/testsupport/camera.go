package testsupport

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"livecatalog/internal/capture"
)

// FakeCamera is an in-memory capture.Source.
type FakeCamera struct {
	mu          sync.Mutex
	devices     []capture.Device
	frame       image.Image
	openErr     error
	snapshotErr error
	failShots   int
	opened      []string
	streams     []*FakeStream
}

// NewFakeCamera returns a source exposing the given device ids that
// snapshots a small solid image.
func NewFakeCamera(deviceIDs ...string) *FakeCamera {
	cam := &FakeCamera{frame: SolidImage(64, 48, color.RGBA{R: 200, G: 120, B: 40, A: 255})}
	for i, id := range deviceIDs {
		cam.devices = append(cam.devices, capture.Device{ID: id, Label: fmt.Sprintf("Fake Camera %d", i)})
	}
	return cam
}

// SetFrame replaces the image returned by snapshots.
func (f *FakeCamera) SetFrame(img image.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = img
}

// FailOpen makes the next Open calls fail with err.
func (f *FakeCamera) FailOpen(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

// FailSnapshots makes the next n snapshots fail with err.
func (f *FakeCamera) FailSnapshots(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failShots = n
	f.snapshotErr = err
}

// Opened returns the device ids passed to Open in order.
func (f *FakeCamera) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

// Streams returns every stream opened so far.
func (f *FakeCamera) Streams() []*FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeStream(nil), f.streams...)
}

func (f *FakeCamera) Devices(context.Context) ([]capture.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capture.Device(nil), f.devices...), nil
}

func (f *FakeCamera) Open(_ context.Context, deviceID string, c capture.Constraints) (capture.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	known := false
	for _, d := range f.devices {
		if d.ID == deviceID {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", capture.ErrDeviceUnavailable, deviceID)
	}
	f.opened = append(f.opened, deviceID)
	stream := &FakeStream{camera: f, video: &FakeTrack{kind: capture.TrackVideo, enabled: true}}
	if c.Audio {
		stream.audio = &FakeTrack{kind: capture.TrackAudio, enabled: true}
	}
	f.streams = append(f.streams, stream)
	return stream, nil
}

// FakeStream is a stream opened by FakeCamera.
type FakeStream struct {
	camera *FakeCamera
	video  *FakeTrack
	audio  *FakeTrack

	mu     sync.Mutex
	closed bool
	shots  int
}

func (s *FakeStream) Tracks() []capture.Track {
	tracks := []capture.Track{s.video}
	if s.audio != nil {
		tracks = append(tracks, s.audio)
	}
	return tracks
}

func (s *FakeStream) Snapshot(context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("stream closed")
	}
	s.camera.mu.Lock()
	img := s.camera.frame
	var err error
	if s.camera.failShots > 0 {
		s.camera.failShots--
		err = s.camera.snapshotErr
	}
	s.camera.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.shots++
	return img, nil
}

func (s *FakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *FakeStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshots returns the number of successful snapshots.
func (s *FakeStream) Snapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shots
}

// Video returns the stream's video track.
func (s *FakeStream) Video() *FakeTrack { return s.video }

// Audio returns the stream's audio track, nil when none was requested.
func (s *FakeStream) Audio() *FakeTrack { return s.audio }

// FakeTrack is a track of a FakeStream.
type FakeTrack struct {
	kind    capture.TrackKind
	mu      sync.Mutex
	enabled bool
	stopped bool
}

func (t *FakeTrack) Kind() capture.TrackKind { return t.kind }

func (t *FakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *FakeTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *FakeTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.enabled = false
}

// Stopped reports whether Stop was called.
func (t *FakeTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
