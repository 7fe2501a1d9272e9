package recognition

import (
	"context"
	"errors"
	"image"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// ErrSourceExhausted ends the loop normally: the camera has no more frames.
var ErrSourceExhausted = errors.New("frame source exhausted")

// Frame is one captured image in full (render) resolution.
type Frame interface {
	Size() image.Point
	// Downsample returns the frame scaled by scale and encoded for the detector.
	Downsample(scale float64) ([]byte, error)
}

type Camera interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Action is an operator input polled once per rendered frame.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionToggleValidation
	ActionEnroll
)

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionToggleValidation:
		return "toggle_validation"
	case ActionEnroll:
		return "enroll"
	default:
		return "none"
	}
}

type Display interface {
	Show(frame Frame, overlays []Overlay, hud HUD) error
	Poll() Action
	Close() error
}

type Gallery interface {
	List(ctx context.Context) ([]domain.Identity, error)
}

type SessionWriter interface {
	SetActive(ctx context.Context, userID int64, userName string) error
}

type Relay interface {
	Pulse(ctx context.Context) bool
	Close() error
}

type AccessRecorder interface {
	Record(ctx context.Context, event domain.AccessEvent) bool
}

// EnrollmentHandler runs the enrollment flow against the cached cycle.
type EnrollmentHandler interface {
	Enroll(ctx context.Context, cycle Cycle) (*domain.Identity, error)
}
