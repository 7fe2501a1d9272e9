package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
	defaultEventLimit  = 50
	maxEventLimit      = 500
)

type SessionStore interface {
	Read(ctx context.Context, now time.Time, ttl time.Duration) (domain.SessionState, error)
	Clear(ctx context.Context) error
}

type IdentityReader interface {
	List(ctx context.Context) ([]domain.Identity, error)
	GetByID(ctx context.Context, id int64) (*domain.Identity, error)
	Nearest(ctx context.Context, embedding []float64, limit int) ([]domain.Candidate, error)
}

type AccessEventReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.AccessEvent, error)
}

// SessionView is what the dashboard front end polls for.
type SessionView struct {
	Authenticated bool           `json:"authenticated"`
	User          *SessionUser   `json:"user,omitempty"`
	Profile       domain.Profile `json:"profile,omitempty"`
	Welcome       string         `json:"welcome,omitempty"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	Portfolio     *Portfolio     `json:"portfolio,omitempty"`
}

type SessionUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type DashboardService struct {
	sessions   SessionStore
	identities IdentityReader
	events     AccessEventReader
	audit      audit.Logger
	logger     *slog.Logger
	ttl        time.Duration
	now        func() time.Time
}

func NewDashboardService(
	sessions SessionStore,
	identities IdentityReader,
	events AccessEventReader,
	auditLogger audit.Logger,
	logger *slog.Logger,
	ttl time.Duration,
) *DashboardService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		sessions:   sessions,
		identities: identities,
		events:     events,
		audit:      auditLogger,
		logger:     logger,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// Session applies lazy expiry and, while the session is fresh, derives the
// profile payload from the enrolled identity.
func (s *DashboardService) Session(ctx context.Context) (*SessionView, error) {
	state, err := s.sessions.Read(ctx, s.now().UTC(), s.ttl)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !state.Authenticated {
		return &SessionView{Authenticated: false}, nil
	}

	startedAt := state.StartedAt
	view := &SessionView{
		Authenticated: true,
		User:          &SessionUser{ID: state.UserID, Name: state.UserName},
		StartedAt:     &startedAt,
		Portfolio:     demoPortfolio(state.UserName),
	}

	identity, err := s.identities.GetByID(ctx, state.UserID)
	switch {
	case err == nil:
		view.Profile = identity.Profile
	case errors.Is(err, domain.ErrIdentityNotFound):
		// Deleted after the match; the session itself is still valid.
		s.logger.Warn("session identity not found", slog.Int64("identity_id", state.UserID))
	default:
		return nil, fmt.Errorf("load identity %d: %w", state.UserID, err)
	}
	view.Welcome = view.Profile.WelcomeMessage()

	return view, nil
}

func (s *DashboardService) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := s.audit.Log(ctx, audit.Event{
		EventType: audit.EventSessionCleared,
		Source:    "dashboard",
		Success:   true,
	}); err != nil {
		s.logger.Warn("audit logout", slog.String("error", err.Error()))
	}
	return nil
}

func (s *DashboardService) Identities(ctx context.Context) ([]domain.Identity, error) {
	identities, err := s.identities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return identities, nil
}

// Search ranks enrolled identities by L2 distance using the vector index.
func (s *DashboardService) Search(ctx context.Context, embedding []float64, limit int) ([]domain.Candidate, error) {
	if len(embedding) != domain.EmbeddingDimension {
		return nil, domain.ErrInvalidEmbedding.WithError(fmt.Errorf("got %d dimensions", len(embedding)))
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("limit must be between 1 and %d", maxSearchLimit))
	}

	candidates, err := s.identities.Nearest(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest identities: %w", err)
	}
	return candidates, nil
}

func (s *DashboardService) AccessEvents(ctx context.Context, limit int) ([]domain.AccessEvent, error) {
	if limit == 0 {
		limit = defaultEventLimit
	}
	if limit < 1 || limit > maxEventLimit {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("limit must be between 1 and %d", maxEventLimit))
	}

	events, err := s.events.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list access events: %w", err)
	}
	return events, nil
}
