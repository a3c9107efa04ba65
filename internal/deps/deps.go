// Package deps reports whether the GStreamer elements the camera source
// builds its pipelines from are installed.
package deps

import (
	"fmt"
	"strings"
)

// Requirement defines a GStreamer element livecatalog relies on.
type Requirement struct {
	Name        string
	Element     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string `json:"name"`
	Element     string `json:"element"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Lookup reports whether an element factory is registered.
type Lookup func(element string) bool

// CaptureRequirements lists the elements of the capture pipelines. The
// microphone elements are optional; without them recording is video only.
func CaptureRequirements(audio bool) []Requirement {
	reqs := []Requirement{
		{Name: "Camera source", Element: "v4l2src", Description: "video4linux capture (gst-plugins-good)"},
		{Name: "Colour conversion", Element: "videoconvert", Description: "gst-plugins-base"},
		{Name: "Scaling", Element: "videoscale", Description: "gst-plugins-base"},
		{Name: "Track switch", Element: "valve", Description: "gstreamer core elements"},
		{Name: "Caps filter", Element: "capsfilter", Description: "gstreamer core elements"},
		{Name: "Frame sink", Element: "appsink", Description: "gst-plugins-base app library"},
	}
	if audio {
		reqs = append(reqs,
			Requirement{Name: "Microphone", Element: "pulsesrc", Description: "PulseAudio/PipeWire source (gst-plugins-good)", Optional: true},
			Requirement{Name: "Audio sink", Element: "fakesink", Description: "gstreamer core elements", Optional: true},
		)
	}
	return reqs
}

// Check evaluates the requirements with lookup and reports availability.
func Check(requirements []Requirement, lookup Lookup) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		element := strings.TrimSpace(req.Element)
		status := Status{
			Name:        req.Name,
			Element:     element,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case element == "":
			status.Detail = "element not configured"
		case lookup == nil || !lookup(element):
			status.Detail = fmt.Sprintf("element %q not found", element)
		default:
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the unavailable statuses that are not optional.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
