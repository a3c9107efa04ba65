package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"slices"

	"livecatalog/internal/capture"
	"livecatalog/internal/logging"
	"livecatalog/internal/store"
)

var (
	// ErrNoSelection is returned by ApplyCrop without a non-empty selection.
	ErrNoSelection = errors.New("no crop selection")
	// ErrNoImage is returned when the frame carries no decodable image.
	ErrNoImage = errors.New("frame has no image")
)

// FrameStore persists edited frames. *store.Store satisfies it.
type FrameStore interface {
	GetFrame(ctx context.Context, id string) (*store.CapturedFrame, error)
	UpdateFrame(ctx context.Context, frame *store.CapturedFrame) error
}

// Editor edits one frame. History entries are compact States replayed over
// the loaded image, so undoing every edit reproduces it exactly.
//
// An Editor is not safe for concurrent use.
type Editor struct {
	store    FrameStore
	logger   *slog.Logger
	quality  float64
	onSave   func(store.CapturedFrame)
	onCancel func()

	frame    store.CapturedFrame
	renderer renderer
	state    State
	undo     []State
	redo     []State

	dragging  bool
	dragStart image.Point
	selection image.Rectangle
}

// Option customizes an Editor.
type Option func(*Editor)

// WithQuality sets the JPEG quality (0..1] used by Save.
func WithQuality(q float64) Option {
	return func(e *Editor) {
		if q > 0 && q <= 1 {
			e.quality = q
		}
	}
}

// WithLogger sets the editor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logging.NewComponentLogger(logger, "editor")
	}
}

// OnSave registers the callback fired with the persisted frame after Save.
func OnSave(fn func(store.CapturedFrame)) Option {
	return func(e *Editor) { e.onSave = fn }
}

// OnCancel registers the callback fired by Cancel.
func OnCancel(fn func()) Option {
	return func(e *Editor) { e.onCancel = fn }
}

// Load decodes the frame's best image (the edited one when present) and
// returns an editor with that image as its only history entry.
func Load(frame store.CapturedFrame, st FrameStore, opts ...Option) (*Editor, error) {
	url := frame.BestImageURL()
	if url == "" {
		return nil, ErrNoImage
	}
	img, err := capture.DecodeDataURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoImage, err)
	}
	e := &Editor{
		store:   st,
		logger:  logging.NewComponentLogger(nil, "editor"),
		quality: 0.9,
		frame:   frame,
		state:   initialState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.renderer.original = toRGBA(img)
	e.undo = []State{e.state.clone()}
	return e, nil
}

// Frame returns the frame being edited.
func (e *Editor) Frame() store.CapturedFrame { return e.frame }

// State returns the current edit state.
func (e *Editor) State() State { return e.state.clone() }

// Params returns the live transform and colour values.
func (e *Editor) Params() Params { return e.state.Params }

// Size returns the current canvas dimensions.
func (e *Editor) Size() (int, int) {
	return canvasSize(e.renderer.base(e.state.Crops).Bounds(), e.state.Params.Rotation)
}

// Render returns the edited canvas.
func (e *Editor) Render() *image.RGBA {
	return e.renderer.render(e.state)
}

// RenderOverlay returns the canvas with the crop selection drawn on top
// when one exists.
func (e *Editor) RenderOverlay() *image.RGBA {
	img := e.Render()
	if !e.selection.Empty() {
		drawSelection(img, e.selection)
	}
	return img
}

// BeginCrop starts a selection drag at p in canvas coordinates.
func (e *Editor) BeginCrop(p image.Point) {
	e.dragging = true
	e.dragStart = p
	e.selection = image.Rectangle{}
}

// DragCrop moves the selection's free corner to p. The selection is the
// bounding box of the drag start and p, so drag direction does not matter.
func (e *Editor) DragCrop(p image.Point) {
	if !e.dragging {
		return
	}
	w, h := e.Size()
	e.selection = image.Rectangle{Min: e.dragStart, Max: p}.Canon().Intersect(image.Rect(0, 0, w, h))
}

// EndCrop finishes the drag and keeps the selection for ApplyCrop.
func (e *Editor) EndCrop(p image.Point) {
	e.DragCrop(p)
	e.dragging = false
}

// CancelCrop discards the selection.
func (e *Editor) CancelCrop() {
	e.dragging = false
	e.selection = image.Rectangle{}
}

// Selection returns the pending crop selection.
func (e *Editor) Selection() (image.Rectangle, bool) {
	return e.selection, !e.selection.Empty()
}

// ApplyCrop keeps only the selected region of the current canvas. The
// current parameters are baked into the cropped image and reset to the
// identity.
func (e *Editor) ApplyCrop() error {
	if e.selection.Empty() {
		return ErrNoSelection
	}
	e.state.Crops = append(slices.Clone(e.state.Crops), CropStep{Params: e.state.Params, Rect: e.selection})
	e.state.Params = DefaultParams()
	e.CancelCrop()
	e.push()
	w, h := e.Size()
	e.logger.Debug("crop applied", logging.Int("width", w), logging.Int("height", h))
	return nil
}

// Rotate turns the canvas 90° clockwise.
func (e *Editor) Rotate() {
	e.state.Params.Rotation = (e.state.Params.Rotation + 90) % 360
	e.CancelCrop()
	e.push()
}

// ZoomIn raises zoom by one step. Zoom changes are not history entries
// until Commit.
func (e *Editor) ZoomIn() { e.SetZoom(e.state.Params.Zoom + ZoomStep) }

// ZoomOut lowers zoom by one step.
func (e *Editor) ZoomOut() { e.SetZoom(e.state.Params.Zoom - ZoomStep) }

// SetZoom sets zoom, clamped to [MinZoom, MaxZoom] and rounded to a step.
func (e *Editor) SetZoom(z float64) {
	z = math.Round(z*10) / 10
	e.state.Params.Zoom = math.Max(MinZoom, math.Min(MaxZoom, z))
}

// SetBrightness sets brightness in percent, clamped to [50, 150].
func (e *Editor) SetBrightness(v int) {
	e.state.Params.Brightness = clampInt(v, MinBrightness, MaxBrightness)
}

// SetContrast sets contrast in percent, clamped to [50, 150].
func (e *Editor) SetContrast(v int) {
	e.state.Params.Contrast = clampInt(v, MinContrast, MaxContrast)
}

// SetSaturation sets saturation in percent, clamped to [0, 200].
func (e *Editor) SetSaturation(v int) {
	e.state.Params.Saturation = clampInt(v, MinSaturation, MaxSaturation)
}

// Commit records continuous adjustments (zoom, colour) as a history entry.
// It reports false when nothing changed since the last entry.
func (e *Editor) Commit() bool {
	if e.state.equal(e.undo[len(e.undo)-1]) {
		return false
	}
	e.push()
	return true
}

// Undo steps back one history entry. The loaded image is always kept.
func (e *Editor) Undo() bool {
	if len(e.undo) <= 1 {
		return false
	}
	top := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, top)
	e.state = e.undo[len(e.undo)-1].clone()
	e.CancelCrop()
	return true
}

// Redo re-applies the last undone entry.
func (e *Editor) Redo() bool {
	if len(e.redo) == 0 {
		return false
	}
	next := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, next)
	e.state = next.clone()
	e.CancelCrop()
	return true
}

func (e *Editor) CanUndo() bool { return len(e.undo) > 1 }

func (e *Editor) CanRedo() bool { return len(e.redo) > 0 }

// Reset restores the loaded image and default parameters as a new history
// entry.
func (e *Editor) Reset() {
	e.state = initialState()
	e.CancelCrop()
	e.push()
}

// push records the current state and clears redo.
func (e *Editor) push() {
	e.undo = append(e.undo, e.state.clone())
	e.redo = nil
}

// Save encodes the canvas and marks the frame edited with the last applied
// crop. Only the edit fields are written over the stored frame, so changes
// made since Load survive. It then fires the save callback.
func (e *Editor) Save(ctx context.Context) (store.CapturedFrame, error) {
	url, err := capture.EncodeJPEG(e.Render(), e.quality)
	if err != nil {
		return store.CapturedFrame{}, fmt.Errorf("encode edited frame: %w", err)
	}
	frame := e.frame
	if e.store != nil {
		current, err := e.store.GetFrame(ctx, e.frame.ID)
		if err != nil {
			return store.CapturedFrame{}, fmt.Errorf("reload frame: %w", err)
		}
		if current == nil {
			return store.CapturedFrame{}, fmt.Errorf("save edited frame %s: %w", e.frame.ID, store.ErrNotFound)
		}
		frame = *current
	}
	frame.IsEdited = true
	frame.EditedImageURL = url
	frame.CropArea = nil
	if rect, ok := e.state.LastCrop(); ok {
		frame.CropArea = &store.Rect{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
	}
	if e.store != nil {
		if err := e.store.UpdateFrame(ctx, &frame); err != nil {
			return store.CapturedFrame{}, fmt.Errorf("save edited frame: %w", err)
		}
	}
	e.frame = frame
	e.logger.Info("frame edited",
		logging.String(logging.FieldFrameID, frame.ID),
		logging.String(logging.FieldSessionID, frame.SessionID),
		logging.Int("bytes", len(url)),
	)
	if e.onSave != nil {
		e.onSave(frame)
	}
	return frame, nil
}

// Cancel abandons the edit and fires the cancel callback.
func (e *Editor) Cancel() {
	e.CancelCrop()
	if e.onCancel != nil {
		e.onCancel()
	}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
