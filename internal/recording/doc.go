// Package recording implements the recording session lifecycle:
//
//	idle → ready → recording ⇄ paused → completed
//
// with error reachable from any non-terminal state. A Recorder owns one
// session at a time, persists every frame the capture controller emits, and
// guarantees at stop that no emitted frame is missing from the store.
package recording
