// Package editor edits a captured frame's image: crop, quarter-turn
// rotation, zoom, and brightness/contrast/saturation, with linear undo and
// redo. The loaded image is never modified; every render replays the
// current history entry over it.
package editor
