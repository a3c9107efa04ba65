package capture_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"livecatalog/internal/capture"
)

func writeSysfs(t *testing.T, path, value string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(value+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPowerReaderReadsBattery(t *testing.T) {
	dir := t.TempDir()
	writeSysfs(t, filepath.Join(dir, "AC", "type"), "Mains")
	writeSysfs(t, filepath.Join(dir, "BAT0", "type"), "Battery")
	writeSysfs(t, filepath.Join(dir, "BAT0", "capacity"), "17")
	writeSysfs(t, filepath.Join(dir, "BAT0", "status"), "Discharging")

	reader := capture.PowerReader{Dir: dir}
	st, ok := reader.Read()
	if !ok || st.Level != 17 || st.Charging {
		t.Fatalf("unexpected power status %+v ok=%v", st, ok)
	}
	cond := reader.Conditions(capture.Conditions{Mobile: true})
	if cond.BatteryLevel != 17 || !cond.Mobile {
		t.Fatalf("unexpected conditions %+v", cond)
	}
	if got := capture.Policy(cond); got.Width != 960 {
		t.Fatalf("expected low-battery settings, got %+v", got)
	}
}

func TestPowerReaderWithoutBattery(t *testing.T) {
	reader := capture.PowerReader{Dir: filepath.Join(t.TempDir(), "missing")}
	if _, ok := reader.Read(); ok {
		t.Fatal("expected no battery")
	}
	if cond := reader.Conditions(capture.Conditions{}); cond.BatteryLevel != -1 {
		t.Fatalf("expected unknown battery level, got %v", cond.BatteryLevel)
	}
}

func TestV4LDevicesList(t *testing.T) {
	dir := t.TempDir()
	writeSysfs(t, filepath.Join(dir, "video2", "name"), "USB Camera")
	writeSysfs(t, filepath.Join(dir, "video2", "index"), "0")
	writeSysfs(t, filepath.Join(dir, "video3", "name"), "USB Camera")
	writeSysfs(t, filepath.Join(dir, "video3", "index"), "1")
	writeSysfs(t, filepath.Join(dir, "video0", "name"), "Integrated Webcam")
	writeSysfs(t, filepath.Join(dir, "v4l-subdev0", "name"), "sensor")

	devices, err := capture.V4LDevices{ClassDir: dir, DevDir: "/dev"}.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 capture nodes, got %+v", devices)
	}
	if devices[0].ID != "/dev/video0" || devices[0].Label != "Integrated Webcam" || devices[1].ID != "/dev/video2" {
		t.Fatalf("unexpected devices %+v", devices)
	}

	none, err := capture.V4LDevices{ClassDir: filepath.Join(dir, "absent")}.List(context.Background())
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty list for missing class dir, got %v %v", none, err)
	}
}
