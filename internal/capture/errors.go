package capture

import "errors"

var (
	// ErrPermissionDenied indicates the host refused access to the device.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrDeviceUnavailable indicates no matching device exists or it was disconnected.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrNoStream is returned when capture is requested before Acquire.
	ErrNoStream = errors.New("no active stream")
	// ErrCaptureActive is returned when StartCapture targets a different
	// session while another capture run is active.
	ErrCaptureActive = errors.New("capture already active for another session")
)
