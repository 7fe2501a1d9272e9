package recognition

import (
	"fmt"
	"image"
	"math"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const notRecognizedMessage = "Not recognized. Press C to enroll."

// Overlay is one face box in frame (render) coordinates.
type Overlay struct {
	Box     image.Rectangle
	Label   string
	Matched bool
}

// HUD is the status line and the footer message drawn on every frame.
type HUD struct {
	Validation bool
	Threshold  float64
	// Footer is the welcome message for a match, the enroll hint for an
	// unknown face, or empty when nothing was detected.
	Footer        string
	FooterMatched bool
}

func (h HUD) Status() string {
	state := "OFF"
	if h.Validation {
		state = "ON"
	}
	return fmt.Sprintf("Validation: %s  (threshold=%g)", state, h.Threshold)
}

// Label formats the text drawn above a face box.
func Label(face RecognizedFace) string {
	m := face.Match
	if !m.Matched {
		return domain.UnknownName
	}
	label := m.Name
	if m.Profile != "" {
		label += fmt.Sprintf(" (%s)", m.Profile)
	}
	return label + fmt.Sprintf("  d=%.3f", m.Distance)
}

// BuildOverlays maps the cycle's detection-space regions into frame space.
// This is the only place the downsample factor is undone.
func BuildOverlays(cycle Cycle, scale float64) []Overlay {
	overlays := make([]Overlay, 0, len(cycle.Faces))
	for _, f := range cycle.Faces {
		overlays = append(overlays, Overlay{
			Box:     toFrameSpace(f.Region, scale),
			Label:   Label(f),
			Matched: f.Match.Matched,
		})
	}
	return overlays
}

// BuildHUD derives the status line and footer. With several faces the last
// one wins, matching the order boxes are drawn in.
func BuildHUD(cycle Cycle, validation bool, threshold float64) HUD {
	hud := HUD{Validation: validation, Threshold: threshold}
	if n := len(cycle.Faces); n > 0 {
		last := cycle.Faces[n-1].Match
		if last.Matched {
			hud.Footer = last.Profile.WelcomeMessage()
			hud.FooterMatched = true
		} else {
			hud.Footer = notRecognizedMessage
		}
	}
	return hud
}

func toFrameSpace(r image.Rectangle, scale float64) image.Rectangle {
	if scale <= 0 || scale == 1 {
		return r
	}
	div := func(v int) int { return int(math.Round(float64(v) / scale)) }
	return image.Rect(div(r.Min.X), div(r.Min.Y), div(r.Max.X), div(r.Max.Y))
}
