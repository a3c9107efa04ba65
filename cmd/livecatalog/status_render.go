package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"livecatalog/internal/recording"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stateColor(state recording.State) string {
	switch state {
	case recording.StateRecording:
		return ansiRed
	case recording.StatePaused:
		return ansiYellow
	case recording.StateCompleted:
		return ansiGreen
	case recording.StateError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func levelColor(level recording.StorageLevel) string {
	switch level {
	case recording.StorageWarning:
		return ansiYellow
	case recording.StorageLimit:
		return ansiRed
	default:
		return ""
	}
}

// renderRecordingStatus formats one status line for the record command.
func renderRecordingStatus(st recording.Status, colorize bool) string {
	state := fmt.Sprintf("%-9s", titleLabel(string(st.State)))
	storage := formatBytes(st.StorageBytes)
	if colorize {
		state = stateColor(st.State) + state + ansiReset
		if c := levelColor(st.StorageLevel); c != "" {
			storage = c + storage + ansiReset
		}
	}
	line := fmt.Sprintf("%s  %s  frames %d  storage %s", state, formatDuration(st.Elapsed), st.FrameCount, storage)
	if st.StorageLevel != recording.StorageOK {
		line += fmt.Sprintf(" (%s)", st.StorageLevel)
	}
	if st.Cause != "" {
		line += "  " + st.Cause
	}
	return line
}
