package store

import (
	"errors"
	"testing"
	"time"
)

func TestParseCollection(t *testing.T) {
	if _, err := ParseCollection("capturedFrames"); err != nil {
		t.Fatalf("ParseCollection failed: %v", err)
	}
	if _, err := ParseCollection("captured_frames"); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection for table name, got %v", err)
	}
}

func TestIndexValue(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"true", true, int64(1)},
		{"false", false, int64(0)},
		{"time", ts, "2026-01-02T03:04:05.000000006Z"},
		{"status", SessionPaused, "paused"},
		{"string", "v1", "v1"},
		{"int", 7, 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := indexValue(tc.in); got != tc.want {
				t.Fatalf("indexValue(%v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}
