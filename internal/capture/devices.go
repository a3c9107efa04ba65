package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// V4LDevices lists video4linux capture nodes from sysfs.
type V4LDevices struct {
	// ClassDir is usually /sys/class/video4linux.
	ClassDir string
	// DevDir is where device nodes live, usually /dev.
	DevDir string
}

// List returns capture devices ordered by node number. Metadata nodes
// (index other than 0) are skipped.
func (v V4LDevices) List(_ context.Context) ([]Device, error) {
	entries, err := os.ReadDir(v.ClassDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", v.ClassDir, err)
	}
	devDir := v.DevDir
	if devDir == "" {
		devDir = "/dev"
	}

	type numbered struct {
		n   int
		dev Device
	}
	var found []numbered
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "video") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, "video"))
		if err != nil {
			continue
		}
		base := filepath.Join(v.ClassDir, name)
		if idx := readTrimmed(filepath.Join(base, "index")); idx != "" && idx != "0" {
			continue
		}
		label := readTrimmed(filepath.Join(base, "name"))
		if label == "" {
			label = name
		}
		found = append(found, numbered{n: n, dev: Device{
			ID:    filepath.Join(devDir, name),
			Label: label,
		}})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	out := make([]Device, 0, len(found))
	for _, f := range found {
		out = append(out, f.dev)
	}
	return out, nil
}
