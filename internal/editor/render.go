package editor

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"slices"
)

const (
	MinZoom       = 0.5
	MaxZoom       = 3.0
	ZoomStep      = 0.1
	MinBrightness = 50
	MaxBrightness = 150
	MinContrast   = 50
	MaxContrast   = 150
	MinSaturation = 0
	MaxSaturation = 200
)

// Params are the view transform and colour adjustments applied to the
// current base image.
type Params struct {
	Rotation   int
	Zoom       float64
	Brightness int
	Contrast   int
	Saturation int
}

// DefaultParams is the identity transform.
func DefaultParams() Params {
	return Params{Zoom: 1, Brightness: 100, Contrast: 100, Saturation: 100}
}

func (p Params) identity() bool {
	return p == DefaultParams()
}

// CropStep bakes Params into the base image and keeps only Rect of the
// rendered canvas.
type CropStep struct {
	Params Params
	Rect   image.Rectangle
}

// State is one history entry: the crops applied so far plus the live
// parameters on top of them.
type State struct {
	Crops  []CropStep
	Params Params
}

func initialState() State {
	return State{Params: DefaultParams()}
}

func (s State) clone() State {
	s.Crops = slices.Clone(s.Crops)
	return s
}

func (s State) equal(o State) bool {
	return s.Params == o.Params && slices.Equal(s.Crops, o.Crops)
}

// LastCrop returns the most recent crop rectangle, if any.
func (s State) LastCrop() (image.Rectangle, bool) {
	if len(s.Crops) == 0 {
		return image.Rectangle{}, false
	}
	return s.Crops[len(s.Crops)-1].Rect, true
}

type bakedStep struct {
	step CropStep
	img  *image.RGBA
}

// renderer replays history over the original image, reusing baked crop
// prefixes between renders.
type renderer struct {
	original *image.RGBA
	baked    []bakedStep
}

func (r *renderer) base(crops []CropStep) *image.RGBA {
	keep := 0
	for keep < len(r.baked) && keep < len(crops) && r.baked[keep].step == crops[keep] {
		keep++
	}
	r.baked = r.baked[:keep]

	img := r.original
	if keep > 0 {
		img = r.baked[keep-1].img
	}
	for _, step := range crops[keep:] {
		img = cropRGBA(renderParams(img, step.Params), step.Rect)
		r.baked = append(r.baked, bakedStep{step: step, img: img})
	}
	return img
}

func (r *renderer) render(s State) *image.RGBA {
	return renderParams(r.base(s.Crops), s.Params)
}

// canvasSize is the drawing surface for src under rotation; quarter turns
// swap the axes.
func canvasSize(src image.Rectangle, rotation int) (int, int) {
	w, h := src.Dx(), src.Dy()
	if rotation%180 != 0 {
		return h, w
	}
	return w, h
}

// renderParams rotates src about its centre, zooms about the canvas
// centre, then adjusts colour. Sampling is nearest neighbour so quarter
// turns at zoom 1 are exact pixel permutations.
func renderParams(src *image.RGBA, p Params) *image.RGBA {
	if p.identity() {
		out := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
		draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)
		return out
	}

	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	cw, ch := canvasSize(sb, p.Rotation)
	out := image.NewRGBA(image.Rect(0, 0, cw, ch))
	zoom := p.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	rot := ((p.Rotation % 360) + 360) % 360

	for y := 0; y < ch; y++ {
		dy := (float64(y) + 0.5 - float64(ch)/2) / zoom
		for x := 0; x < cw; x++ {
			dx := (float64(x) + 0.5 - float64(cw)/2) / zoom
			var u, v float64
			switch rot {
			case 90:
				u, v = dy, -dx
			case 180:
				u, v = -dx, -dy
			case 270:
				u, v = -dy, dx
			default:
				u, v = dx, dy
			}
			sx := int(math.Floor(u + float64(sw)/2))
			sy := int(math.Floor(v + float64(sh)/2))
			if sx < 0 || sy < 0 || sx >= sw || sy >= sh {
				continue
			}
			si := src.PixOffset(sb.Min.X+sx, sb.Min.Y+sy)
			di := out.PixOffset(x, y)
			copy(out.Pix[di:di+4], src.Pix[si:si+4])
		}
	}

	if p.Brightness != 100 || p.Contrast != 100 || p.Saturation != 100 {
		for i := 0; i+3 < len(out.Pix); i += 4 {
			if out.Pix[i+3] == 0 {
				continue
			}
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = AdjustPixel(out.Pix[i], out.Pix[i+1], out.Pix[i+2], p.Brightness, p.Contrast, p.Saturation)
		}
	}
	return out
}

func cropRGBA(src *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(src.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), src, rect.Min, draw.Src)
	return out
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

const handleSize = 8

var (
	selectionColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	shadeColor     = color.RGBA{A: 96}
)

// drawSelection shades outside rect, outlines it, and marks its corners.
func drawSelection(dst *image.RGBA, rect image.Rectangle) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	shade := image.NewUniform(shadeColor)
	b := dst.Bounds()
	for _, r := range []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, rect.Min.Y),
		image.Rect(b.Min.X, rect.Max.Y, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, rect.Min.Y, rect.Min.X, rect.Max.Y),
		image.Rect(rect.Max.X, rect.Min.Y, b.Max.X, rect.Max.Y),
	} {
		draw.Draw(dst, r, shade, image.Point{}, draw.Over)
	}

	line := image.NewUniform(selectionColor)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+1), line, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Max.Y-1, rect.Max.X, rect.Max.Y), line, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+1, rect.Max.Y), line, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(rect.Max.X-1, rect.Min.Y, rect.Max.X, rect.Max.Y), line, image.Point{}, draw.Src)

	half := handleSize / 2
	for _, c := range []image.Point{
		rect.Min,
		{X: rect.Max.X - 1, Y: rect.Min.Y},
		{X: rect.Min.X, Y: rect.Max.Y - 1},
		{X: rect.Max.X - 1, Y: rect.Max.Y - 1},
	} {
		handle := image.Rect(c.X-half, c.Y-half, c.X+half, c.Y+half).Intersect(b)
		draw.Draw(dst, handle, line, image.Point{}, draw.Src)
	}
}
