package recording

import (
	"errors"
	"time"

	"livecatalog/internal/store"
)

// State is a recorder lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateReady     State = "ready"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopping  State = "stopping"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Terminal reports whether the state ends the session instance.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

var (
	// ErrInvalidTransition is returned when an operation is not allowed from
	// the current state.
	ErrInvalidTransition = errors.New("invalid recording transition")
	// ErrDeviceBusy indicates another recorder holds the device lock.
	ErrDeviceBusy = errors.New("capture device busy")
	// ErrClosed is returned by Prepare after Close.
	ErrClosed = errors.New("recorder closed")
)

// StorageLevel grades a session's storage use against the configured
// thresholds.
type StorageLevel string

const (
	StorageOK      StorageLevel = "ok"
	StorageWarning StorageLevel = "warning"
	StorageLimit   StorageLevel = "limit"
)

// LevelFor grades bytes: above warn is a warning, at or above limit is the
// soft cap. Non-positive thresholds are ignored.
func LevelFor(bytes, warn, limit int64) StorageLevel {
	switch {
	case limit > 0 && bytes >= limit:
		return StorageLimit
	case warn > 0 && bytes > warn:
		return StorageWarning
	default:
		return StorageOK
	}
}

// Status is a point-in-time view of the recorder for display.
type Status struct {
	State        State
	DeviceID     string
	Session      *store.Session
	FrameCount   int
	Elapsed      time.Duration
	StorageBytes int64
	StorageLevel StorageLevel
	Cause        string
}

// Snapshot returns the recorder's current status.
func (r *Recorder) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		State:        r.state,
		DeviceID:     r.deviceID,
		FrameCount:   len(r.frames),
		StorageBytes: r.storageBytes,
		StorageLevel: r.level,
	}
	if r.session != nil {
		copied := *r.session
		st.Session = &copied
		if r.state == StateCompleted {
			st.FrameCount = copied.FrameCount
		}
	}
	if r.cause != nil {
		st.Cause = r.cause.Error()
	}
	st.Elapsed = r.elapsedLocked()
	return st
}

func (r *Recorder) elapsedLocked() time.Duration {
	if r.startedAt.IsZero() {
		return 0
	}
	end := r.clock.Now()
	switch {
	case !r.endedAt.IsZero():
		end = r.endedAt
	case !r.pausedAt.IsZero():
		end = r.pausedAt
	}
	elapsed := end.Sub(r.startedAt) - r.pausedTotal
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
