// Package capture owns the camera stream for a recording and emits still
// frames on a timer.
//
// A Controller acquires a Stream from a Source (GStreamer in production, a
// fake in tests), toggles its tracks, and runs one capture loop at a time.
// Each tick snapshots the video track, encodes it as a JPEG data URL scaled
// to the active CaptureSettings, and notifies subscribers in tick order.
//
// Policy maps battery and connection conditions to CaptureSettings.
// PowerReader, V4LDevices, and HotplugMonitor read the host state that
// feeds it.
package capture
