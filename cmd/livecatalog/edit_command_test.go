package main

import (
	"context"
	"image"
	"testing"

	"livecatalog/internal/capture"
	"livecatalog/internal/store"
)

func TestParseCrop(t *testing.T) {
	tests := []struct {
		value   string
		want    image.Rectangle
		wantErr bool
	}{
		{value: "4,2,16,10", want: image.Rect(4, 2, 20, 12)},
		{value: " 0, 0, 1, 1 ", want: image.Rect(0, 0, 1, 1)},
		{value: "1,2,3", wantErr: true},
		{value: "a,b,c,d", wantErr: true},
		{value: "0,0,0,5", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseCrop(tt.value)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseCrop(%q) expected error", tt.value)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseCrop(%q): %v", tt.value, err)
		}
		if got != tt.want {
			t.Fatalf("parseCrop(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestEditRotatesAndCrops(t *testing.T) {
	env := setupCLITestEnv(t)
	_, frame := env.seedFrame(t, "Edit")

	out, _, err := runCLI(t, []string{"edit", frame.ID, "--rotate", "90", "--crop", "2,4,8,10"}, env.configPath)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	requireContains(t, out, "8x10")

	saved, err := env.store.GetFrame(context.Background(), frame.ID)
	if err != nil || saved == nil {
		t.Fatalf("get frame: %v", err)
	}
	if !saved.IsEdited || saved.CropArea == nil {
		t.Fatalf("expected edited frame with crop, got %+v", saved)
	}
	if *saved.CropArea != (store.Rect{X: 2, Y: 4, Width: 8, Height: 10}) {
		t.Fatalf("unexpected crop %+v", *saved.CropArea)
	}
	img, err := capture.DecodeDataURL(saved.EditedImageURL)
	if err != nil {
		t.Fatalf("decode edited image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 10 {
		t.Fatalf("edited image is %dx%d, want 8x10", b.Dx(), b.Dy())
	}
	if saved.ImageURL != frame.ImageURL {
		t.Fatal("original capture must be kept")
	}

	// Resetting edits from the original capture: 20x12 rotated is 12x20.
	out, _, err = runCLI(t, []string{"edit", frame.ID, "--reset", "--rotate", "270", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("edit --reset: %v", err)
	}
	requireContains(t, out, "12x20")
}

func TestEditRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)
	_, frame := env.seedFrame(t, "Bad")

	if _, _, err := runCLI(t, []string{"edit", frame.ID, "--rotate", "45"}, env.configPath); err == nil {
		t.Fatal("expected non-quarter rotation to fail")
	}
	if _, _, err := runCLI(t, []string{"edit", frame.ID, "--crop", "100,100,5,5"}, env.configPath); err == nil {
		t.Fatal("expected crop outside the canvas to fail")
	}
	if _, _, err := runCLI(t, []string{"edit", "missing"}, env.configPath); err == nil {
		t.Fatal("expected missing frame to fail")
	}
}
