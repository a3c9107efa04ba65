package capture

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PowerStatus is a battery reading.
type PowerStatus struct {
	Level    float64
	Charging bool
}

// PowerReader reads battery state from the power_supply sysfs class.
type PowerReader struct {
	Dir string
}

// Read returns the first battery's status. ok is false when the host has
// no readable battery.
func (p PowerReader) Read() (PowerStatus, bool) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return PowerStatus{}, false
	}
	for _, entry := range entries {
		base := filepath.Join(p.Dir, entry.Name())
		if readTrimmed(filepath.Join(base, "type")) != "Battery" {
			continue
		}
		capacity, err := strconv.ParseFloat(readTrimmed(filepath.Join(base, "capacity")), 64)
		if err != nil {
			continue
		}
		status := readTrimmed(filepath.Join(base, "status"))
		return PowerStatus{
			Level:    min(100, max(0, capacity)),
			Charging: status == "Charging" || status == "Full",
		}, true
	}
	return PowerStatus{}, false
}

// Level adapts Read to a BatteryFunc.
func (p PowerReader) Level() (float64, bool) {
	st, ok := p.Read()
	return st.Level, ok
}

// Conditions fills the battery fields of base from the host.
func (p PowerReader) Conditions(base Conditions) Conditions {
	st, ok := p.Read()
	if !ok {
		base.BatteryLevel = -1
		return base
	}
	base.BatteryLevel = st.Level
	base.Charging = st.Charging
	return base
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
