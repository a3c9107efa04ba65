package capture_test

import (
	"testing"
	"time"

	"livecatalog/internal/capture"
)

func TestPolicy(t *testing.T) {
	tests := []struct {
		name         string
		cond         capture.Conditions
		wantInterval time.Duration
		wantQuality  float64
		wantWidth    int
		wantFPS      int
	}{
		{"desktop unknown battery", capture.Conditions{BatteryLevel: -1}, 5 * time.Second, 0.85, 1280, 30},
		{"desktop full battery", capture.Conditions{BatteryLevel: 90}, 5 * time.Second, 0.85, 1280, 30},
		{"mobile full battery", capture.Conditions{BatteryLevel: 90, Mobile: true}, 5 * time.Second, 0.8, 1280, 24},
		{"low battery", capture.Conditions{BatteryLevel: 20}, 10 * time.Second, 0.6, 960, 15},
		{"critical battery", capture.Conditions{BatteryLevel: 15}, 15 * time.Second, 0.5, 640, 10},
		{"critical but charging", capture.Conditions{BatteryLevel: 10, Charging: true}, 5 * time.Second, 0.85, 1280, 30},
		{"3g connection", capture.Conditions{BatteryLevel: -1, EffectiveType: "3g"}, 8 * time.Second, 0.6, 854, 15},
		{"slow downlink", capture.Conditions{BatteryLevel: -1, EffectiveType: "4g", DownlinkMbps: 0.5}, 8 * time.Second, 0.6, 854, 15},
		{"critical battery on 2g", capture.Conditions{BatteryLevel: 5, EffectiveType: "2g"}, 15 * time.Second, 0.5, 640, 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := capture.Policy(tc.cond)
			if got.Interval != tc.wantInterval || got.Quality != tc.wantQuality || got.Width != tc.wantWidth || got.FrameRate != tc.wantFPS {
				t.Fatalf("Policy(%+v) = %+v", tc.cond, got)
			}
		})
	}
}

func TestPolicyNeverImprovesWithWorseConditions(t *testing.T) {
	base := capture.Policy(capture.Conditions{BatteryLevel: 80})
	for _, level := range []float64{20, 15, 1} {
		got := capture.Policy(capture.Conditions{BatteryLevel: level, EffectiveType: "slow-2g"})
		if got.Interval < base.Interval || got.Quality > base.Quality || got.Width > base.Width {
			t.Fatalf("battery %.0f produced richer settings %+v than %+v", level, got, base)
		}
	}
}

func TestSlowConnection(t *testing.T) {
	tests := []struct {
		effective string
		downlink  float64
		want      bool
	}{
		{"slow-2g", 0, true},
		{"2G", 0, true},
		{"3g", 10, true},
		{"4g", 0, false},
		{"4g", 0.9, true},
		{"", 1.0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		if got := capture.SlowConnection(tc.effective, tc.downlink); got != tc.want {
			t.Fatalf("SlowConnection(%q, %v) = %v, want %v", tc.effective, tc.downlink, got, tc.want)
		}
	}
}
