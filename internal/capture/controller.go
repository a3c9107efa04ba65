package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"livecatalog/internal/clock"
	"livecatalog/internal/logging"
	"livecatalog/internal/store"
)

// FrameEvent is delivered to subscribers for every captured frame.
type FrameEvent struct {
	SessionID string
	Frame     store.CapturedFrame
}

// Listener receives frame events on the capture goroutine.
type Listener func(FrameEvent)

// FaultHandler is told when the active stream fails for good.
type FaultHandler func(error)

// BatteryFunc reports the current battery level (0..100) and whether it
// is known.
type BatteryFunc func() (float64, bool)

// Controller owns the active stream and the capture loop.
type Controller struct {
	source  Source
	clock   clock.Clock
	logger  *slog.Logger
	battery BatteryFunc

	mu            sync.Mutex
	stream        Stream
	deviceID      string
	defaultDevice string
	settings      CaptureSettings
	sessionID     string
	run           *captureRun
	paused        bool
	listeners     map[int]Listener
	faults        map[int]FaultHandler
	nextID        int
}

type captureRun struct {
	sessionID string
	stop      chan struct{}
	done      chan struct{}
	once      sync.Once
}

func (r *captureRun) halt() {
	r.once.Do(func() { close(r.stop) })
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithClock sets the time source for capture tickers.
func WithClock(c clock.Clock) ControllerOption {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.clock = c
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(ctrl *Controller) {
		ctrl.logger = logging.NewComponentLogger(logger, "capture")
	}
}

// WithBattery sets the battery probe recorded in frame metadata.
func WithBattery(fn BatteryFunc) ControllerOption {
	return func(ctrl *Controller) {
		ctrl.battery = fn
	}
}

// NewController creates a controller over source with initial settings.
func NewController(source Source, settings CaptureSettings, opts ...ControllerOption) *Controller {
	c := &Controller{
		source:    source,
		clock:     clock.System{},
		logger:    logging.NewComponentLogger(nil, "capture"),
		settings:  settings,
		listeners: make(map[int]Listener),
		faults:    make(map[int]FaultHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnumerateDevices lists video inputs. The first device becomes the default
// selection when none was chosen before.
func (c *Controller) EnumerateDevices(ctx context.Context) ([]Device, error) {
	devices, err := c.source.Devices(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.defaultDevice == "" && len(devices) > 0 {
		c.defaultDevice = devices[0].ID
	}
	c.mu.Unlock()
	return devices, nil
}

// DefaultDevice returns the selected default device id, if any.
func (c *Controller) DefaultDevice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultDevice
}

// Acquire opens a stream on deviceID, or on the default device when empty.
// Any prior stream is stopped and closed before the new one is requested.
func (c *Controller) Acquire(ctx context.Context, deviceID string, constraints Constraints) (Stream, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		if _, err := c.EnumerateDevices(ctx); err != nil {
			return nil, err
		}
		deviceID = c.DefaultDevice()
		if deviceID == "" {
			return nil, fmt.Errorf("%w: no video input found", ErrDeviceUnavailable)
		}
	}

	c.haltRun()
	c.closeStream()

	stream, err := c.source.Open(ctx, deviceID, constraints)
	if err != nil {
		return nil, classifyOpenError(deviceID, err)
	}

	c.mu.Lock()
	c.stream = stream
	c.deviceID = deviceID
	if c.defaultDevice == "" {
		c.defaultDevice = deviceID
	}
	c.mu.Unlock()

	c.logger.Info("stream acquired",
		logging.String(logging.FieldDevice, deviceID),
		logging.Int("tracks", len(stream.Tracks())),
	)
	return stream, nil
}

func classifyOpenError(deviceID string, err error) error {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return fmt.Errorf("acquire %s: %w", deviceID, err)
	}
	return fmt.Errorf("acquire %s: %w: %w", deviceID, ErrDeviceUnavailable, err)
}

// Device returns the active device id.
func (c *Controller) Device() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceID
}

// HasStream reports whether a stream is active.
func (c *Controller) HasStream() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// SetTrackEnabled toggles every track of the given kind without reopening
// the stream.
func (c *Controller) SetTrackEnabled(kind TrackKind, enabled bool) error {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	if stream == nil {
		return ErrNoStream
	}
	for _, track := range stream.Tracks() {
		if track.Kind() == kind {
			track.SetEnabled(enabled)
		}
	}
	return nil
}

// Subscribe registers a frame listener and returns its unsubscribe func.
func (c *Controller) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// OnFault registers a handler for stream failures and returns its
// unregister func. Handlers run on their own goroutine.
func (c *Controller) OnFault(fn FaultHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.faults[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.faults, id)
	}
}

// Settings returns the active capture settings.
func (c *Controller) Settings() CaptureSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SetSettings replaces the capture settings. A running loop picks them up
// after its current capture; an interval change restarts the ticker then.
func (c *Controller) SetSettings(s CaptureSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Interval <= 0 {
		s.Interval = c.settings.Interval
	}
	c.settings = s
}

// StartCapture begins emitting frames for sessionID. Starting again for the
// same session is a no-op.
func (c *Controller) StartCapture(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return ErrNoStream
	}
	if c.run != nil || c.paused {
		if c.sessionID == sessionID {
			return nil
		}
		return ErrCaptureActive
	}
	c.sessionID = sessionID
	c.startLocked()
	return nil
}

// PauseCapture stops the ticker and waits for an in-flight capture to
// finish. The stream stays open.
func (c *Controller) PauseCapture() {
	c.mu.Lock()
	if c.run == nil {
		c.mu.Unlock()
		return
	}
	c.paused = true
	c.mu.Unlock()
	c.haltRun()
}

// ResumeCapture restarts the ticker; the next frame is one full interval
// after the resume instant.
func (c *Controller) ResumeCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return nil
	}
	if c.stream == nil {
		return ErrNoStream
	}
	c.paused = false
	c.startLocked()
	return nil
}

// StopCapture ends the capture run. No frame is emitted after it returns.
func (c *Controller) StopCapture() {
	c.haltRun()
	c.mu.Lock()
	c.paused = false
	c.sessionID = ""
	c.mu.Unlock()
}

// Capturing reports whether the capture loop is running.
func (c *Controller) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run != nil
}

// StopTracks stops every track of the active stream.
func (c *Controller) StopTracks() {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	if stream == nil {
		return
	}
	for _, track := range stream.Tracks() {
		track.Stop()
	}
}

// Release stops capture, stops every track, and closes the stream.
func (c *Controller) Release() {
	c.StopCapture()
	c.closeStream()
}

// DeviceLost tears down the stream when deviceID is the active device and
// notifies fault handlers.
func (c *Controller) DeviceLost(deviceID string) {
	c.mu.Lock()
	active := c.deviceID
	c.mu.Unlock()
	if active == "" || active != deviceID {
		return
	}
	logging.WarnWithContext(c.logger, "capture device removed", "device_lost",
		logging.String(logging.FieldDevice, deviceID),
		logging.String(logging.FieldErrorHint, "reconnect the camera and start a new session"),
		logging.String(logging.FieldImpact, "recording stops"),
	)
	c.Release()
	c.fault(fmt.Errorf("%w: %s disconnected", ErrDeviceUnavailable, deviceID))
}

func (c *Controller) closeStream() {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.deviceID = ""
	c.mu.Unlock()
	if stream == nil {
		return
	}
	for _, track := range stream.Tracks() {
		track.Stop()
	}
	if err := stream.Close(); err != nil {
		c.logger.Debug("stream close failed", logging.Error(err))
	}
}

// startLocked creates the ticker synchronously so the interval is measured
// from this instant.
func (c *Controller) startLocked() {
	run := &captureRun{
		sessionID: c.sessionID,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	ticker := c.clock.NewTicker(c.settings.Interval)
	c.run = run
	go c.loop(run, ticker, c.settings.Interval)
}

func (c *Controller) haltRun() {
	c.mu.Lock()
	run := c.run
	c.run = nil
	c.mu.Unlock()
	if run == nil {
		return
	}
	run.halt()
	<-run.done
}

func (c *Controller) loop(run *captureRun, ticker clock.Ticker, interval time.Duration) {
	defer close(run.done)
	defer func() { ticker.Stop() }()

	for {
		select {
		case <-run.stop:
			return
		case at := <-ticker.C():
			if err := c.captureOnce(run, at); err != nil {
				if errors.Is(err, ErrDeviceUnavailable) {
					c.logger.Error("capture stream lost",
						logging.String(logging.FieldSessionID, run.sessionID),
						logging.Error(err),
						logging.String(logging.FieldEventType, "capture_stream_lost"),
						logging.String(logging.FieldErrorHint, "check the camera connection"),
					)
					go c.fault(err)
					return
				}
				logging.WarnWithContext(c.logger, "frame capture failed", "capture_failed",
					logging.String(logging.FieldSessionID, run.sessionID),
					logging.Error(err),
					logging.String(logging.FieldImpact, "frame skipped; capture continues"),
				)
			}
			if next := c.Settings().Interval; next != interval {
				ticker.Stop()
				ticker = c.clock.NewTicker(next)
				interval = next
				c.logger.Debug("capture interval changed", logging.Duration("interval", next))
			}
		}
	}
}

func (c *Controller) captureOnce(run *captureRun, at time.Time) error {
	c.mu.Lock()
	stream := c.stream
	settings := c.settings
	deviceID := c.deviceID
	c.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("%w: stream closed", ErrDeviceUnavailable)
	}

	img, err := stream.Snapshot(context.Background())
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	encoded, err := EncodeFrame(img, settings)
	if err != nil {
		return err
	}

	frame := store.CapturedFrame{
		ID:           uuid.NewString(),
		SessionID:    run.sessionID,
		Timestamp:    at.UTC(),
		ImageURL:     encoded.ImageURL,
		ThumbnailURL: encoded.ThumbnailURL,
		Metadata: store.FrameMetadata{
			Width:        encoded.Width,
			Height:       encoded.Height,
			Quality:      settings.Quality,
			DeviceID:     deviceID,
			BatteryLevel: -1,
		},
	}
	if c.battery != nil {
		if level, ok := c.battery(); ok {
			frame.Metadata.BatteryLevel = level
		}
	}

	c.logger.Debug("frame captured",
		logging.String(logging.FieldSessionID, run.sessionID),
		logging.String(logging.FieldFrameID, frame.ID),
		logging.Int("bytes", len(frame.ImageURL)),
	)
	c.notify(FrameEvent{SessionID: run.sessionID, Frame: frame})
	return nil
}

func (c *Controller) notify(evt FrameEvent) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(evt)
	}
}

func (c *Controller) fault(err error) {
	c.mu.Lock()
	handlers := make([]FaultHandler, 0, len(c.faults))
	for _, fn := range c.faults {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()
	for _, fn := range handlers {
		fn(err)
	}
}
