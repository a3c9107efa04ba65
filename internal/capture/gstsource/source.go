// Package gstsource implements capture.Source over GStreamer: v4l2src for
// the camera and pulsesrc for the microphone.
package gstsource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
	"golang.org/x/sys/unix"

	"livecatalog/internal/capture"
	"livecatalog/internal/logging"
)

const (
	firstFrameTimeout = 5 * time.Second
	busPollInterval   = 50 * time.Millisecond
)

var initOnce sync.Once

// Source opens GStreamer pipelines on video4linux devices.
type Source struct {
	devices capture.V4LDevices
	logger  *slog.Logger
}

// New returns a source listing devices from classDir (usually
// /sys/class/video4linux).
func New(classDir string, logger *slog.Logger) *Source {
	return &Source{
		devices: capture.V4LDevices{ClassDir: classDir, DevDir: "/dev"},
		logger:  logging.NewComponentLogger(logger, "gstreamer"),
	}
}

// ElementAvailable reports whether a GStreamer element factory is
// registered.
func ElementAvailable(name string) bool {
	initOnce.Do(func() { gst.Init(nil) })
	return gst.Find(name) != nil
}

// Devices lists video4linux capture nodes.
func (s *Source) Devices(ctx context.Context) ([]capture.Device, error) {
	return s.devices.List(ctx)
}

// Open builds and starts the pipeline
//
//	v4l2src ! videoconvert ! videoscale ! valve ! capsfilter(RGBA WxH) ! appsink
//
// plus, when audio is requested, pulsesrc ! valve ! fakesink.
func (s *Source) Open(ctx context.Context, deviceID string, c capture.Constraints) (capture.Stream, error) {
	if err := checkDevice(deviceID); err != nil {
		return nil, err
	}
	initOnce.Do(func() { gst.Init(nil) })

	width, height := c.Width, c.Height
	if width <= 0 || height <= 0 {
		width, height = 1280, 720
	}

	stream := &stream{
		logger: s.logger.With(logging.String(logging.FieldDevice, deviceID)),
		width:  width,
		height: height,
		quit:   make(chan struct{}),
		ready:  make(chan struct{}),
	}
	if err := stream.build(deviceID, c, width, height); err != nil {
		return nil, fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
	}

	if err := stream.pipeline.SetState(gst.StatePlaying); err != nil {
		stream.teardown()
		return nil, classifyPipelineError(err.Error())
	}

	go stream.watchBus()

	if err := stream.awaitFirstFrame(ctx, deviceID, firstFrameTimeout); err != nil {
		return nil, err
	}

	s.logger.Info("gstreamer pipeline playing",
		logging.String(logging.FieldDevice, deviceID),
		logging.Int("width", width),
		logging.Int("height", height),
	)
	return stream, nil
}

func checkDevice(deviceID string) error {
	if _, err := os.Stat(deviceID); err != nil {
		return fmt.Errorf("%w: %s: %w", capture.ErrDeviceUnavailable, deviceID, err)
	}
	if err := unix.Access(deviceID, unix.R_OK|unix.W_OK); err != nil {
		if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
			return fmt.Errorf("%w: %s: %w", capture.ErrPermissionDenied, deviceID, err)
		}
		return fmt.Errorf("%w: %s: %w", capture.ErrDeviceUnavailable, deviceID, err)
	}
	return nil
}

func classifyPipelineError(msg string) error {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "not permitted") {
		return fmt.Errorf("%w: %s", capture.ErrPermissionDenied, msg)
	}
	return fmt.Errorf("%w: %s", capture.ErrDeviceUnavailable, msg)
}

type stream struct {
	logger *slog.Logger
	width  int
	height int

	pipeline   *gst.Pipeline
	videoValve *gst.Element
	audioValve *gst.Element
	sink       *app.Sink

	mu       sync.Mutex
	latest   []byte
	err      error
	closed   bool
	quit     chan struct{}
	ready    chan struct{}
	quitOnce sync.Once
	readyOne sync.Once

	tracks []capture.Track
}

func (st *stream) build(deviceID string, c capture.Constraints, width, height int) error {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	st.pipeline = pipeline

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return fmt.Errorf("create v4l2src: %w", err)
	}
	if err := src.SetProperty("device", deviceID); err != nil {
		return fmt.Errorf("set device: %w", err)
	}
	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return fmt.Errorf("create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return fmt.Errorf("create videoscale: %w", err)
	}
	valve, err := gst.NewElement("valve")
	if err != nil {
		return fmt.Errorf("create valve: %w", err)
	}
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("create capsfilter: %w", err)
	}
	caps := fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d", width, height)
	if c.FrameRate > 0 {
		caps += fmt.Sprintf(",framerate=%d/1", c.FrameRate)
	}
	if err := capsfilter.SetProperty("caps", gst.NewCapsFromString(caps)); err != nil {
		return fmt.Errorf("set caps: %w", err)
	}

	sink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("create appsink: %w", err)
	}
	_ = sink.SetProperty("sync", false)
	_ = sink.SetProperty("max-buffers", 1)
	_ = sink.SetProperty("drop", true)
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: st.onSample,
	})
	st.sink = sink
	st.videoValve = valve

	if err := pipeline.AddMany(src, convert, scale, valve, capsfilter, sink.Element); err != nil {
		return fmt.Errorf("add video elements: %w", err)
	}
	if err := gst.ElementLinkMany(src, convert, scale, valve, capsfilter, sink.Element); err != nil {
		return fmt.Errorf("link video elements: %w", err)
	}
	st.tracks = append(st.tracks, &track{kind: capture.TrackVideo, valve: valve, enabled: true})

	if c.Audio {
		if err := st.buildAudio(); err != nil {
			st.logger.Warn("microphone unavailable; continuing with video only",
				logging.Error(err),
				logging.String(logging.FieldEventType, "audio_unavailable"),
				logging.String(logging.FieldErrorHint, "check that PulseAudio or PipeWire is running"),
				logging.String(logging.FieldImpact, "stream has no audio track"),
			)
		}
	}
	return nil
}

func (st *stream) buildAudio() error {
	src, err := gst.NewElement("pulsesrc")
	if err != nil {
		return fmt.Errorf("create pulsesrc: %w", err)
	}
	valve, err := gst.NewElement("valve")
	if err != nil {
		return fmt.Errorf("create audio valve: %w", err)
	}
	sink, err := gst.NewElement("fakesink")
	if err != nil {
		return fmt.Errorf("create fakesink: %w", err)
	}
	_ = sink.SetProperty("sync", false)
	if err := st.pipeline.AddMany(src, valve, sink); err != nil {
		return fmt.Errorf("add audio elements: %w", err)
	}
	if err := gst.ElementLinkMany(src, valve, sink); err != nil {
		return fmt.Errorf("link audio elements: %w", err)
	}
	st.audioValve = valve
	st.tracks = append(st.tracks, &track{kind: capture.TrackAudio, valve: valve, enabled: true})
	return nil
}

func (st *stream) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) < st.width*st.height*4 {
		buffer.Unmap()
		return gst.FlowOK
	}
	frame := make([]byte, st.width*st.height*4)
	copy(frame, data)
	buffer.Unmap()

	st.mu.Lock()
	st.latest = frame
	st.mu.Unlock()
	st.readyOne.Do(func() { close(st.ready) })
	return gst.FlowOK
}

func (st *stream) watchBus() {
	bus := st.pipeline.GetPipelineBus()
	for {
		select {
		case <-st.quit:
			return
		default:
		}
		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			st.logger.Error("gstreamer pipeline error",
				logging.String("error", gerr.Error()),
				logging.String("debug", gerr.DebugString()),
				logging.String(logging.FieldEventType, "pipeline_error"),
				logging.String(logging.FieldErrorHint, "check the camera connection and permissions"),
			)
			st.fail(classifyPipelineError(gerr.Error()))
			return
		case gst.MessageEOS:
			st.fail(fmt.Errorf("%w: end of stream", capture.ErrDeviceUnavailable))
			return
		}
	}
}

// awaitFirstFrame blocks until the appsink delivers a frame. Any other
// outcome closes the stream.
func (st *stream) awaitFirstFrame(ctx context.Context, deviceID string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case <-st.ready:
		return nil
	case <-st.quit:
		err = st.failure()
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
		err = fmt.Errorf("%w: no frames from %s within %s", capture.ErrDeviceUnavailable, deviceID, timeout)
	}
	st.Close()
	return err
}

func (st *stream) fail(err error) {
	st.mu.Lock()
	if st.err == nil {
		st.err = err
	}
	st.mu.Unlock()
	st.quitOnce.Do(func() { close(st.quit) })
}

func (st *stream) failure() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.err != nil {
		return st.err
	}
	return fmt.Errorf("%w: stream closed", capture.ErrDeviceUnavailable)
}

func (st *stream) Tracks() []capture.Track {
	return st.tracks
}

// Snapshot returns the latest frame. A disabled video track yields a black
// frame of the stream size.
func (st *stream) Snapshot(context.Context) (image.Image, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.err != nil {
		return nil, st.err
	}
	if st.closed {
		return nil, fmt.Errorf("%w: stream closed", capture.ErrDeviceUnavailable)
	}
	img := image.NewRGBA(image.Rect(0, 0, st.width, st.height))
	if len(st.tracks) > 0 && !st.tracks[0].Enabled() {
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xff
		}
		return img, nil
	}
	if st.latest == nil {
		return nil, errors.New("no frame received yet")
	}
	copy(img.Pix, st.latest)
	return img, nil
}

func (st *stream) Close() error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil
	}
	st.closed = true
	st.mu.Unlock()
	st.quitOnce.Do(func() { close(st.quit) })
	return st.teardown()
}

func (st *stream) teardown() error {
	if st.pipeline == nil {
		return nil
	}
	if err := st.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("stop pipeline: %w", err)
	}
	return nil
}

type track struct {
	kind  capture.TrackKind
	valve *gst.Element

	mu      sync.Mutex
	enabled bool
	stopped bool
}

func (t *track) Kind() capture.TrackKind { return t.kind }

func (t *track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.stopped
}

func (t *track) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.enabled = enabled
	_ = t.valve.SetProperty("drop", !enabled)
}

// Stop closes the valve for good; the pipeline itself stops on Close.
func (t *track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	_ = t.valve.SetProperty("drop", true)
}
