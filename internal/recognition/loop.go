package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/matcher"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// State is the loop's position within one iteration.
type State int

const (
	StateIdle State = iota
	StateSampling
	StateDetecting
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateSampling:
		return "sampling"
	case StateDetecting:
		return "detecting"
	case StateRendering:
		return "rendering"
	default:
		return "idle"
	}
}

// RecognizedFace is one face from a detection cycle. Region stays in
// detection (downsampled) coordinates.
type RecognizedFace struct {
	Region    image.Rectangle
	Embedding []float64
	Match     matcher.Result
}

// Cycle holds the results of the most recent detecting iteration. It is
// replaced only by the next one and reused for rendering in between.
type Cycle struct {
	Seq   uint64
	Faces []RecognizedFace
}

type Config struct {
	ProcessEveryN int
	Scale         float64
	Threshold     float64
	Validation    bool
}

type Deps struct {
	Camera   Camera
	Display  Display
	Detector provider.Detector
	Gallery  Gallery
	Session  SessionWriter
	Relay    Relay
	Recorder AccessRecorder
	Enroller EnrollmentHandler
	Logger   *slog.Logger
}

type Loop struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	state      State
	frameCount uint64
	validation bool
	cycle      Cycle
	closed     bool
}

func NewLoop(cfg Config, deps Deps) *Loop {
	if cfg.ProcessEveryN < 1 {
		cfg.ProcessEveryN = 1
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:        cfg,
		deps:       deps,
		log:        logger.With("component", "recognition"),
		validation: cfg.Validation,
	}
}

func (l *Loop) State() State       { return l.state }
func (l *Loop) Validation() bool   { return l.validation }
func (l *Loop) Cycle() Cycle       { return l.cycle }
func (l *Loop) FrameCount() uint64 { return l.frameCount }

// Run steps until quit, source exhaustion, cancellation or a fatal error.
// Owned resources are released on every exit path.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if cerr := l.Close(); cerr != nil {
			l.log.Warn("release resources", slog.String("error", cerr.Error()))
		}
	}()

	l.log.Info("recognition loop started",
		slog.Int("process_every_n", l.cfg.ProcessEveryN),
		slog.Float64("scale", l.cfg.Scale),
		slog.Float64("threshold", l.cfg.Threshold),
		slog.Bool("validation", l.validation),
	)

	for {
		more, err := l.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			l.log.Info("recognition loop stopped", slog.Uint64("frames", l.frameCount))
			return nil
		}
	}
}

// Step runs one iteration: acquire, maybe detect, render, poll input.
// It reports false when the loop should end without error.
func (l *Loop) Step(ctx context.Context) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}

	frame, err := l.deps.Camera.Next(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrSourceExhausted), errors.Is(err, io.EOF):
			l.log.Info("frame source exhausted")
		case ctx.Err() != nil:
		default:
			l.log.Warn("frame source unreadable", slog.String("error", err.Error()))
		}
		return false, nil
	}

	l.frameCount++
	l.state = StateSampling

	if l.frameCount%uint64(l.cfg.ProcessEveryN) == 0 {
		l.state = StateDetecting
		if err := l.detect(ctx, frame); err != nil {
			return false, err
		}
	}

	l.state = StateRendering
	overlays := BuildOverlays(l.cycle, l.cfg.Scale)
	hud := BuildHUD(l.cycle, l.validation, l.cfg.Threshold)
	if err := l.deps.Display.Show(frame, overlays, hud); err != nil {
		return false, fmt.Errorf("render frame: %w", err)
	}

	action := l.deps.Display.Poll()
	l.state = StateSampling

	switch action {
	case ActionQuit:
		return false, nil
	case ActionToggleValidation:
		l.validation = !l.validation
		l.log.Info("validation toggled", slog.Bool("validation", l.validation))
	case ActionEnroll:
		if err := l.enroll(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (l *Loop) detect(ctx context.Context, frame Frame) error {
	seq := l.cycle.Seq + 1

	img, err := frame.Downsample(l.cfg.Scale)
	if err != nil {
		l.log.Warn("downsample frame", slog.String("error", err.Error()))
		l.cycle = Cycle{Seq: seq}
		return nil
	}

	detected, err := l.deps.Detector.Detect(ctx, img)
	if err != nil {
		if ctx.Err() == nil {
			l.log.Warn("face detection failed", slog.String("error", err.Error()))
		}
		l.cycle = Cycle{Seq: seq}
		return nil
	}

	// One snapshot per cycle so every face is matched against the same gallery.
	var gallery []domain.Identity
	if l.validation {
		gallery, err = l.deps.Gallery.List(ctx)
		if err != nil {
			l.cycle = Cycle{Seq: seq}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("load gallery: %w", err)
		}
	}

	faces := make([]RecognizedFace, 0, len(detected))
	for _, d := range detected {
		result := matcher.Unknown(math.Inf(1))
		if l.validation {
			result = matcher.Match(d.Embedding, gallery, l.cfg.Threshold)
		}
		faces = append(faces, RecognizedFace{Region: d.Region, Embedding: d.Embedding, Match: result})

		if result.Matched {
			if err := l.accept(ctx, result); err != nil {
				return err
			}
			if ctx.Err() != nil {
				break
			}
		}
	}

	l.cycle = Cycle{Seq: seq, Faces: faces}
	return nil
}

func (l *Loop) accept(ctx context.Context, result matcher.Result) error {
	if err := l.deps.Session.SetActive(ctx, result.IdentityID, result.Name); err != nil {
		// Shutting down mid-cycle is a quit, not a storage outage.
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("set active session: %w", err)
	}

	triggered := false
	if l.deps.Relay != nil {
		triggered = l.deps.Relay.Pulse(ctx)
	}

	if l.deps.Recorder != nil {
		l.deps.Recorder.Record(ctx, domain.AccessEvent{
			IdentityID:     result.IdentityID,
			IdentityName:   result.Name,
			Distance:       result.Distance,
			RelayTriggered: triggered,
		})
	}

	l.log.Debug("face accepted",
		slog.Int64("identity_id", result.IdentityID),
		slog.Float64("distance", result.Distance),
		slog.Bool("relay", triggered),
	)
	return nil
}

func (l *Loop) enroll(ctx context.Context) error {
	if l.deps.Enroller == nil {
		return nil
	}
	identity, err := l.deps.Enroller.Enroll(ctx, l.cycle)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) && ctx.Err() == nil {
			return fmt.Errorf("enroll: %w", err)
		}
		l.log.Info("enrollment rejected", slog.String("reason", err.Error()))
		return nil
	}
	if identity != nil {
		l.log.Info("identity enrolled",
			slog.Int64("identity_id", identity.ID),
			slog.String("profile", string(identity.Profile)),
		)
	}
	return nil
}

// Close releases the camera, display, detector and relay. Safe to call twice.
func (l *Loop) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.state = StateIdle

	var errs []error
	if l.deps.Camera != nil {
		if err := l.deps.Camera.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera: %w", err))
		}
	}
	if l.deps.Display != nil {
		if err := l.deps.Display.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close display: %w", err))
		}
	}
	if l.deps.Detector != nil {
		if err := l.deps.Detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
	}
	if l.deps.Relay != nil {
		if err := l.deps.Relay.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay: %w", err))
		}
	}
	return errors.Join(errs...)
}
