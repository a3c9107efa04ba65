package capture_test

import (
	"errors"
	"image/color"
	"strings"
	"testing"

	"livecatalog/internal/capture"
	"livecatalog/internal/testsupport"
)

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{1920, 1080, 1280, 720, 1280, 720},
		{640, 480, 1280, 720, 640, 480},
		{1000, 1000, 1280, 720, 720, 720},
		{4000, 1000, 1000, 0, 1000, 250},
		{0, 10, 100, 100, 0, 0},
	}
	for _, tc := range tests {
		gotW, gotH := capture.FitWithin(tc.w, tc.h, tc.maxW, tc.maxH)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Fatalf("FitWithin(%d,%d,%d,%d) = %dx%d, want %dx%d", tc.w, tc.h, tc.maxW, tc.maxH, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	img := testsupport.SolidImage(80, 60, color.RGBA{R: 10, G: 200, B: 90, A: 255})
	encoded, err := capture.EncodeFrame(img, capture.CaptureSettings{Quality: 0.9, Width: 40, Height: 40, ThumbnailWidth: 10})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if !strings.HasPrefix(encoded.ImageURL, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected url prefix %q", encoded.ImageURL[:30])
	}
	if encoded.Width != 40 || encoded.Height != 30 {
		t.Fatalf("expected 40x30, got %dx%d", encoded.Width, encoded.Height)
	}

	decoded, err := capture.DecodeDataURL(encoded.ImageURL)
	if err != nil {
		t.Fatalf("DecodeDataURL failed: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Fatalf("decoded size %v", b)
	}
	thumb, err := capture.DecodeDataURL(encoded.ThumbnailURL)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if thumb.Bounds().Dx() != 10 {
		t.Fatalf("expected thumbnail width 10, got %d", thumb.Bounds().Dx())
	}
}

func TestDataURLBytesRejectsMalformed(t *testing.T) {
	for _, url := range []string{
		"https://example.com/a.jpg",
		"data:text/plain;base64,AAAA",
		"data:image/jpeg,AAAA",
		"data:image/jpeg;base64,%%%",
	} {
		if _, err := capture.DataURLBytes(url); !errors.Is(err, capture.ErrInvalidDataURL) {
			t.Fatalf("DataURLBytes(%q) expected ErrInvalidDataURL, got %v", url, err)
		}
	}
}
