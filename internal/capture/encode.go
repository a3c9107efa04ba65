package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

const jpegDataURLPrefix = "data:image/jpeg;base64,"

// ErrInvalidDataURL is returned for URLs that are not base64 image data URLs.
var ErrInvalidDataURL = errors.New("invalid image data url")

// FitWithin returns the size of a w x h image scaled to fit inside
// maxW x maxH with its aspect ratio kept. Images are never upscaled; a
// non-positive bound leaves that dimension unconstrained.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = math.Min(scale, float64(maxW)/float64(w))
	}
	if maxH > 0 && h > maxH {
		scale = math.Min(scale, float64(maxH)/float64(h))
	}
	if scale >= 1 {
		return w, h
	}
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return nw, nh
}

// Scale resamples img to fit inside maxW x maxH.
func Scale(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxW, maxH)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// jpegQuality maps a 0..1 quality onto the encoder's 1..100 scale.
func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	return min(100, max(1, v))
}

// EncodeJPEG encodes img as a JPEG data URL.
func EncodeJPEG(img image.Image, quality float64) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return jpegDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL decodes a base64 image data URL.
func DecodeDataURL(url string) (image.Image, error) {
	payload, err := DataURLBytes(url)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DataURLBytes returns the raw bytes carried by a base64 data URL.
func DataURLBytes(url string) ([]byte, error) {
	if !strings.HasPrefix(url, "data:") {
		return nil, ErrInvalidDataURL
	}
	header, payload, ok := strings.Cut(url, ",")
	if !ok || !strings.HasSuffix(header, ";base64") || !strings.HasPrefix(header, "data:image/") {
		return nil, ErrInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}
	return data, nil
}

// EncodedFrame is a capture ready to be stored.
type EncodedFrame struct {
	ImageURL     string
	ThumbnailURL string
	Width        int
	Height       int
}

// EncodeFrame scales img to the settings' resolution, encodes it, and
// produces a thumbnail.
func EncodeFrame(img image.Image, s CaptureSettings) (EncodedFrame, error) {
	scaled := Scale(img, s.Width, s.Height)
	url, err := EncodeJPEG(scaled, s.Quality)
	if err != nil {
		return EncodedFrame{}, err
	}
	out := EncodedFrame{ImageURL: url, Width: scaled.Bounds().Dx(), Height: scaled.Bounds().Dy()}
	if s.ThumbnailWidth > 0 {
		thumb, err := EncodeJPEG(Scale(scaled, s.ThumbnailWidth, 0), s.Quality)
		if err != nil {
			return EncodedFrame{}, err
		}
		out.ThumbnailURL = thumb
	}
	return out, nil
}
