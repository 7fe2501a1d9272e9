package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// ErrEnrollmentAborted is returned when the operator input ends mid-flow.
var ErrEnrollmentAborted = errors.New("enrollment aborted")

const profileMenu = "Profile: [1] Conservative  [2] Moderate  [3] Aggressive"

// Prompter is the operator-facing input surface of the enrollment flow.
type Prompter interface {
	Name(ctx context.Context) (string, error)
	Profile(ctx context.Context) (string, error)
	Notify(msg string)
}

type IdentityStore interface {
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, identity *domain.Identity) error
}

type Enroller struct {
	store    IdentityStore
	prompter Prompter
	audit    audit.Logger
	logger   *slog.Logger
}

func NewEnroller(store IdentityStore, prompter Prompter, auditLogger audit.Logger, logger *slog.Logger) *Enroller {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enroller{
		store:    store,
		prompter: prompter,
		audit:    auditLogger,
		logger:   logger.With("component", "enrollment"),
	}
}

// Enroll registers the single face of cycle under an operator-supplied name
// and profile. The embedding is the one computed in that cycle.
func (e *Enroller) Enroll(ctx context.Context, cycle Cycle) (*domain.Identity, error) {
	switch n := len(cycle.Faces); {
	case n == 0:
		e.prompter.Notify("[ERROR] " + domain.ErrNoFaceDetected.Message)
		return nil, domain.ErrNoFaceDetected
	case n > 1:
		e.prompter.Notify("[ERROR] " + domain.ErrMultipleFaces.Message)
		return nil, domain.ErrMultipleFaces.WithError(fmt.Errorf("%d faces in view", n))
	}

	embedding := append([]float64(nil), cycle.Faces[0].Embedding...)
	if len(embedding) != domain.EmbeddingDimension {
		e.prompter.Notify("[ERROR] " + domain.ErrInvalidEmbedding.Message)
		return nil, domain.ErrInvalidEmbedding.WithError(fmt.Errorf("got %d dimensions", len(embedding)))
	}

	e.prompter.Notify("--- Enrollment ---")

	name, err := e.askName(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := e.askProfile(ctx)
	if err != nil {
		return nil, err
	}

	identity := &domain.Identity{Name: name, Profile: profile, Embedding: embedding}
	if err := e.store.Create(ctx, identity); err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) && !errors.Is(err, domain.ErrStorageUnavailable) {
			e.prompter.Notify("[ERROR] " + appErr.Message)
		}
		return nil, err
	}

	e.prompter.Notify(fmt.Sprintf("[OK] %s (%s) enrolled.", identity.Name, identity.Profile))

	if err := e.audit.Log(ctx, audit.Event{
		EventType:    audit.EventIdentityEnrolled,
		IdentityID:   identity.ID,
		IdentityName: identity.Name,
		Source:       "kiosk",
		Success:      true,
		Metadata:     map[string]string{"profile": string(identity.Profile)},
	}); err != nil {
		e.logger.Warn("audit enrollment", slog.String("error", err.Error()))
	}

	return identity, nil
}

func (e *Enroller) askName(ctx context.Context) (string, error) {
	for {
		raw, err := e.prompter.Name(ctx)
		if err != nil {
			e.prompter.Notify("Enrollment cancelled.")
			return "", fmt.Errorf("%w: %v", ErrEnrollmentAborted, err)
		}

		name := strings.TrimSpace(raw)
		if name == "" {
			e.prompter.Notify("[ERROR] Name must not be empty.")
			continue
		}

		exists, err := e.store.ExistsByName(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				e.prompter.Notify("Enrollment cancelled.")
				return "", fmt.Errorf("%w: %v", ErrEnrollmentAborted, ctx.Err())
			}
			return "", err
		}
		if exists {
			e.prompter.Notify("[ERROR] " + domain.ErrDuplicateName.Message + ". Choose another.")
			continue
		}
		return name, nil
	}
}

func (e *Enroller) askProfile(ctx context.Context) (domain.Profile, error) {
	e.prompter.Notify(profileMenu)
	for {
		raw, err := e.prompter.Profile(ctx)
		if err != nil {
			e.prompter.Notify("Enrollment cancelled.")
			return "", fmt.Errorf("%w: %v", ErrEnrollmentAborted, err)
		}

		profile, err := domain.ParseProfile(raw)
		if err != nil {
			e.prompter.Notify("Type 1, 2 or 3.")
			continue
		}
		return profile, nil
	}
}
