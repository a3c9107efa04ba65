package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"livecatalog/internal/capture"
	"livecatalog/internal/clock"
	"livecatalog/internal/config"
	"livecatalog/internal/logging"
	"livecatalog/internal/store"
)

// Store is the persistence surface the recorder needs. *store.Store
// satisfies it.
type Store interface {
	CreateSession(ctx context.Context, session *store.Session) error
	UpdateSession(ctx context.Context, session *store.Session) error
	DeleteSession(ctx context.Context, id string) (int, error)
	SaveFrame(ctx context.Context, frame *store.CapturedFrame) error
	FrameIDsForSession(ctx context.Context, sessionID string) (map[string]struct{}, error)
	FrameStorageBytes(ctx context.Context, sessionID string) (int64, error)
}

// FrameObserver is told about every frame the recorder accepts, in capture
// order, before the frame is persisted.
type FrameObserver func(sessionID string, frame store.CapturedFrame)

// StartOptions describes the session a recording creates.
type StartOptions struct {
	Name     string
	VendorID string
	Metadata map[string]string
}

// Recorder drives one recording session at a time over a capture
// controller.
type Recorder struct {
	store     Store
	ctrl      *capture.Controller
	clock     clock.Clock
	logger    *slog.Logger
	lockDir   func(device string) string
	warnBytes int64
	capBytes  int64
	audio     bool

	// persistMu serializes session record writes; it is taken before mu.
	persistMu sync.Mutex

	mu           sync.Mutex
	state        State
	deviceID     string
	lock         *flock.Flock
	session      *store.Session
	frames       []store.CapturedFrame
	storageBytes int64
	level        StorageLevel
	cause        error
	startedAt    time.Time
	pausedAt     time.Time
	pausedTotal  time.Duration
	endedAt      time.Time
	accepting    bool
	unsubscribe  func()
	unfault      func()
	observers    map[int]FrameObserver
	nextObserver int
	closed       bool

	saves sync.WaitGroup
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithClock sets the time source used for session timestamps and elapsed
// time. It should match the controller's clock.
func WithClock(c clock.Clock) Option {
	return func(r *Recorder) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the recorder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logging.NewComponentLogger(logger, "recording")
	}
}

// New creates an idle recorder.
func New(cfg *config.Config, st Store, ctrl *capture.Controller, opts ...Option) *Recorder {
	r := &Recorder{
		store:     st,
		ctrl:      ctrl,
		clock:     clock.System{},
		logger:    logging.NewComponentLogger(nil, "recording"),
		lockDir:   cfg.LockPath,
		warnBytes: cfg.StorageWarnBytes(),
		capBytes:  cfg.StorageLimitBytes(),
		audio:     cfg.Capture.Audio,
		state:     StateIdle,
		level:     StorageOK,
		observers: make(map[int]FrameObserver),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepare acquires the capture device and moves idle → ready. An empty
// deviceID selects the first enumerated device.
func (r *Recorder) Prepare(ctx context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.state != StateIdle {
		return fmt.Errorf("%w: prepare from %s", ErrInvalidTransition, r.state)
	}

	if deviceID == "" {
		if _, err := r.ctrl.EnumerateDevices(ctx); err != nil {
			return r.failLocked(fmt.Errorf("enumerate devices: %w", err))
		}
		deviceID = r.ctrl.DefaultDevice()
		if deviceID == "" {
			return r.failLocked(fmt.Errorf("%w: no capture devices", capture.ErrDeviceUnavailable))
		}
	}

	lockPath := r.lockDir(deviceID)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire device lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceBusy, deviceID)
	}

	settings := r.ctrl.Settings()
	constraints := capture.Constraints{
		Width:     settings.Width,
		Height:    settings.Height,
		FrameRate: settings.FrameRate,
		Audio:     r.audio,
	}
	if _, err := r.ctrl.Acquire(ctx, deviceID, constraints); err != nil {
		_ = lock.Unlock()
		return r.failLocked(err)
	}

	r.lock = lock
	r.deviceID = r.ctrl.Device()
	if r.unfault == nil {
		r.unfault = r.ctrl.OnFault(r.onFault)
	}
	r.state = StateReady
	r.logger.Info("capture device ready",
		logging.String(logging.FieldDevice, r.deviceID),
		logging.String(logging.FieldState, string(r.state)),
	)
	return nil
}

// Start creates the session record and begins capture. Calling Start while
// already recording or paused is a no-op.
func (r *Recorder) Start(ctx context.Context, opts StartOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateRecording, StatePaused:
		return nil
	case StateReady:
	default:
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, r.state)
	}

	now := r.clock.Now().UTC()
	session := &store.Session{
		Name:      opts.Name,
		VendorID:  opts.VendorID,
		Metadata:  opts.Metadata,
		Status:    store.SessionRecording,
		StartTime: now,
	}
	if session.Name == "" {
		session.Name = "Session " + now.Format("2006-01-02 15:04")
	}
	if session.Metadata == nil {
		session.Metadata = map[string]string{}
	}
	session.Metadata["device"] = r.deviceID
	if err := r.store.CreateSession(ctx, session); err != nil {
		return r.failLocked(fmt.Errorf("create session: %w", err))
	}

	r.session = session
	r.frames = nil
	r.storageBytes = 0
	r.level = StorageOK
	r.startedAt = now
	r.pausedTotal = 0
	r.pausedAt = time.Time{}
	r.endedAt = time.Time{}
	r.accepting = true
	r.unsubscribe = r.ctrl.Subscribe(r.onFrame)

	if err := r.ctrl.StartCapture(session.ID); err != nil {
		r.unsubscribe()
		r.unsubscribe = nil
		r.accepting = false
		return r.failLocked(fmt.Errorf("start capture: %w", err))
	}

	r.state = StateRecording
	r.logger.Info("recording started",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String(logging.FieldDevice, r.deviceID),
		logging.Duration("interval", r.ctrl.Settings().Interval),
	)
	return nil
}

// Pause stops the capture timer; the stream stays open and elapsed time
// stops accruing.
func (r *Recorder) Pause(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StatePaused {
		r.mu.Unlock()
		return nil
	}
	if r.state != StateRecording {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, state)
	}
	r.state = StatePaused
	r.pausedAt = r.clock.Now()
	sessionID := r.session.ID
	r.mu.Unlock()

	// The capture loop may be waiting on r.mu inside onFrame.
	r.ctrl.PauseCapture()

	r.persistStatus(ctx, func(s *store.Session) { s.Status = store.SessionPaused })
	r.logger.Info("recording paused", logging.String(logging.FieldSessionID, sessionID))
	return nil
}

// Resume restarts the capture timer; the next frame arrives one full
// interval later.
func (r *Recorder) Resume(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateRecording {
		r.mu.Unlock()
		return nil
	}
	if r.state != StatePaused {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, state)
	}
	r.pausedTotal += r.clock.Now().Sub(r.pausedAt)
	r.pausedAt = time.Time{}
	r.state = StateRecording
	sessionID := r.session.ID
	r.mu.Unlock()

	if err := r.ctrl.ResumeCapture(); err != nil {
		r.fail(ctx, fmt.Errorf("resume capture: %w", err))
		return err
	}
	r.persistStatus(ctx, func(s *store.Session) { s.Status = store.SessionRecording })
	r.logger.Info("recording resumed", logging.String(logging.FieldSessionID, sessionID))
	return nil
}

// Stop ends the recording: it clears the capture timer, stops every track,
// and unregisters the frame listener, in that order. It then waits for
// in-flight saves, persists any frame whose save failed, and completes the
// session record.
func (r *Recorder) Stop(ctx context.Context) (*store.Session, error) {
	r.mu.Lock()
	switch r.state {
	case StateCompleted:
		session := *r.session
		r.mu.Unlock()
		return &session, nil
	case StateRecording, StatePaused:
	default:
		state := r.state
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: stop from %s", ErrInvalidTransition, state)
	}
	r.state = StateStopping
	now := r.clock.Now()
	if !r.pausedAt.IsZero() {
		r.pausedTotal += now.Sub(r.pausedAt)
		r.pausedAt = time.Time{}
	}
	r.endedAt = now
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	r.ctrl.StopCapture()
	r.ctrl.StopTracks()
	if unsubscribe != nil {
		unsubscribe()
	}

	r.mu.Lock()
	r.accepting = false
	r.mu.Unlock()
	r.saves.Wait()

	count, bytes, err := r.reconcile(ctx)
	if err != nil {
		r.fail(ctx, err)
		return nil, err
	}

	// A device fault during teardown leaves the session in error.
	session, err := r.updateSession(ctx, func(s *store.Session) error {
		if r.state != StateStopping {
			if r.cause != nil {
				return r.cause
			}
			return fmt.Errorf("%w: stop interrupted in %s", ErrInvalidTransition, r.state)
		}
		end := r.endedAt.UTC()
		s.EndTime = &end
		s.Status = store.SessionCompleted
		s.FrameCount = count
		s.StorageBytes = bytes
		r.state = StateCompleted
		return nil
	})
	if err != nil {
		r.mu.Lock()
		completed := r.state == StateCompleted
		if completed {
			r.state = StateStopping
		}
		r.mu.Unlock()
		if !completed {
			return nil, err
		}
		err = fmt.Errorf("complete session: %w", err)
		r.fail(ctx, err)
		return nil, err
	}

	r.mu.Lock()
	r.storageBytes = bytes
	r.level = LevelFor(bytes, r.warnBytes, r.capBytes)
	r.releaseDeviceLocked()
	r.mu.Unlock()

	r.logger.Info("recording completed",
		logging.String(logging.FieldSessionID, session.ID),
		logging.Int("frames", count),
		logging.Int64("storage_bytes", bytes),
		logging.Duration("elapsed", r.Snapshot().Elapsed),
	)
	return session, nil
}

// reconcile persists every in-memory frame missing from storage and
// returns the distinct frame count and storage bytes.
func (r *Recorder) reconcile(ctx context.Context) (int, int64, error) {
	r.mu.Lock()
	sessionID := r.session.ID
	frames := append([]store.CapturedFrame(nil), r.frames...)
	r.mu.Unlock()

	stored, err := r.store.FrameIDsForSession(ctx, sessionID)
	if err != nil {
		return 0, 0, fmt.Errorf("list stored frames: %w", err)
	}
	retried := 0
	for i := range frames {
		if _, ok := stored[frames[i].ID]; ok {
			continue
		}
		if err := r.store.SaveFrame(ctx, &frames[i]); err != nil {
			return 0, 0, fmt.Errorf("persist frame %s: %w", frames[i].ID, err)
		}
		stored[frames[i].ID] = struct{}{}
		retried++
	}
	if retried > 0 {
		r.logger.Info("unsaved frames persisted at stop",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Int("frames", retried),
		)
	}
	bytes, err := r.store.FrameStorageBytes(ctx, sessionID)
	if err != nil {
		return 0, 0, fmt.Errorf("measure session storage: %w", err)
	}
	return len(stored), bytes, nil
}

// Fail moves the recorder to the error state with cause. It is a no-op once
// the session completed or already failed.
func (r *Recorder) Fail(ctx context.Context, cause error) {
	r.fail(ctx, cause)
}

func (r *Recorder) onFault(err error) {
	r.fail(context.Background(), err)
}

func (r *Recorder) fail(ctx context.Context, cause error) {
	r.mu.Lock()
	switch r.state {
	case StateCompleted, StateError:
		r.mu.Unlock()
		return
	}
	prev := r.state
	r.state = StateError
	r.cause = cause
	if r.endedAt.IsZero() && !r.startedAt.IsZero() {
		r.endedAt = r.clock.Now()
		if !r.pausedAt.IsZero() {
			r.pausedTotal += r.endedAt.Sub(r.pausedAt)
			r.pausedAt = time.Time{}
		}
	}
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if prev == StateRecording || prev == StatePaused || prev == StateStopping {
		r.ctrl.StopCapture()
		r.ctrl.StopTracks()
		if unsubscribe != nil {
			unsubscribe()
		}
		r.mu.Lock()
		r.accepting = false
		r.mu.Unlock()
		r.saves.Wait()
	}

	r.logger.Error("recording failed",
		logging.String(logging.FieldState, string(prev)),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "recording_failed"),
		logging.String(logging.FieldErrorHint, "reset the session and start a new recording"),
	)

	now := r.clock.Now().UTC()
	r.persistStatus(ctx, func(s *store.Session) {
		s.Status = store.SessionError
		s.ErrorMessage = cause.Error()
		s.EndTime = &now
	})

	r.mu.Lock()
	r.releaseDeviceLocked()
	r.mu.Unlock()
}

// failLocked records a failure that happened before capture started. The
// caller holds r.mu.
func (r *Recorder) failLocked(cause error) error {
	r.state = StateError
	r.cause = cause
	r.logger.Error("recording setup failed",
		logging.Error(cause),
		logging.String(logging.FieldEventType, "recording_setup_failed"),
		logging.String(logging.FieldErrorHint, setupHint(cause)),
	)
	r.releaseDeviceLocked()
	return cause
}

func setupHint(err error) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return "grant camera access (video group) and retry"
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return "connect a camera and retry"
	case errors.Is(err, store.ErrStorageUnavailable), errors.Is(err, store.ErrPersistence):
		return "check free space and permissions of the data directory"
	}
	return "reset and retry"
}

// Reset stops any active recording, deletes the session and its frames,
// releases the device, and returns to idle.
func (r *Recorder) Reset(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateIdle {
		r.mu.Unlock()
		return nil
	}
	active := r.state == StateRecording || r.state == StatePaused
	r.accepting = false
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	session := r.session
	r.mu.Unlock()

	if active {
		r.ctrl.StopCapture()
		if unsubscribe != nil {
			unsubscribe()
		}
	}
	r.ctrl.StopTracks()
	r.saves.Wait()

	if session != nil {
		removed, err := r.store.DeleteSession(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		r.logger.Info("session discarded",
			logging.String(logging.FieldSessionID, session.ID),
			logging.Int("frames_removed", removed),
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseDeviceLocked()
	r.state = StateIdle
	r.session = nil
	r.frames = nil
	r.storageBytes = 0
	r.level = StorageOK
	r.cause = nil
	r.startedAt = time.Time{}
	r.pausedAt = time.Time{}
	r.endedAt = time.Time{}
	r.pausedTotal = 0
	return nil
}

// Close runs the stop teardown when a recording is active and releases the
// device. It is safe to call more than once.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	active := r.state == StateRecording || r.state == StatePaused
	r.mu.Unlock()

	var err error
	if active {
		_, err = r.Stop(ctx)
	}

	r.mu.Lock()
	if r.unfault != nil {
		r.unfault()
		r.unfault = nil
	}
	r.releaseDeviceLocked()
	r.mu.Unlock()
	return err
}

// releaseDeviceLocked closes the stream and drops the device lock.
func (r *Recorder) releaseDeviceLocked() {
	r.ctrl.Release()
	if r.lock != nil {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release device lock", logging.Error(err))
		}
		r.lock = nil
	}
}

// OnFrameCaptured registers an observer and returns its unregister func.
func (r *Recorder) OnFrameCaptured(fn FrameObserver) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextObserver
	r.nextObserver++
	r.observers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers, id)
	}
}

// onFrame runs on the capture goroutine.
func (r *Recorder) onFrame(evt capture.FrameEvent) {
	r.mu.Lock()
	if !r.accepting || r.session == nil || evt.SessionID != r.session.ID {
		r.mu.Unlock()
		return
	}
	r.frames = append(r.frames, evt.Frame)
	r.saves.Add(1)
	ids := make([]int, 0, len(r.observers))
	for id := range r.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]FrameObserver, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, r.observers[id])
	}
	r.mu.Unlock()

	for _, fn := range observers {
		fn(evt.SessionID, evt.Frame)
	}
	go r.saveFrame(evt.Frame)
}

func (r *Recorder) saveFrame(frame store.CapturedFrame) {
	defer r.saves.Done()
	ctx := context.Background()
	if err := r.store.SaveFrame(ctx, &frame); err != nil {
		logging.WarnWithContext(r.logger, "frame save failed", "frame_save_failed",
			logging.String(logging.FieldSessionID, frame.SessionID),
			logging.String(logging.FieldFrameID, frame.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "frame retried when the recording stops"),
		)
		return
	}
	bytes, err := r.store.FrameStorageBytes(ctx, frame.SessionID)
	if err != nil {
		r.logger.Debug("storage measurement failed", logging.Error(err))
		return
	}

	var prev, level StorageLevel
	var total int64
	r.persistStatus(ctx, func(s *store.Session) {
		if bytes > r.storageBytes {
			r.storageBytes = bytes
		}
		prev = r.level
		r.level = LevelFor(r.storageBytes, r.warnBytes, r.capBytes)
		level = r.level
		total = r.storageBytes
		s.FrameCount = len(r.frames)
		s.StorageBytes = r.storageBytes
	})

	if level != prev && level != StorageOK {
		logging.WarnWithContext(r.logger, "session storage threshold crossed", "storage_"+string(level),
			logging.String(logging.FieldSessionID, frame.SessionID),
			logging.Int64("storage_bytes", total),
			logging.String(logging.FieldImpact, "recording continues"),
		)
	}
}

// updateSession applies fn to a copy of the live session under r.mu and
// writes the result. A nil session is skipped. The copy becomes the live
// session only when fn succeeds.
func (r *Recorder) updateSession(ctx context.Context, fn func(*store.Session) error) (*store.Session, error) {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	if r.session == nil {
		r.mu.Unlock()
		return nil, nil
	}
	session := *r.session
	if err := fn(&session); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.session = &session
	r.mu.Unlock()

	out := session
	if err := r.store.UpdateSession(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// persistStatus updates the live session and logs a failed write.
func (r *Recorder) persistStatus(ctx context.Context, fn func(*store.Session)) {
	_, err := r.updateSession(ctx, func(s *store.Session) error {
		fn(s)
		return nil
	})
	if err == nil {
		return
	}
	r.mu.Lock()
	id, status := "", store.SessionStatus("")
	if r.session != nil {
		id, status = r.session.ID, r.session.Status
	}
	r.mu.Unlock()
	logging.WarnWithContext(r.logger, "session update failed", "session_update_failed",
		logging.String(logging.FieldSessionID, id),
		logging.String(logging.FieldState, string(status)),
		logging.Error(err),
	)
}
