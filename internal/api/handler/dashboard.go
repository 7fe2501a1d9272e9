package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

// DashboardService interface for the service
type DashboardService interface {
	Session(ctx context.Context) (*service.SessionView, error)
	Logout(ctx context.Context) error
	Identities(ctx context.Context) ([]domain.Identity, error)
	Search(ctx context.Context, embedding []float64, limit int) ([]domain.Candidate, error)
	AccessEvents(ctx context.Context, limit int) ([]domain.AccessEvent, error)
}

// DashboardHandler serves the read side of the kiosk to the web front end
type DashboardHandler struct {
	service DashboardService
	logger  *slog.Logger
}

func NewDashboardHandler(service DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger,
	}
}

type LogoutResponse struct {
	OK bool `json:"ok"`
}

type IdentitiesResponse struct {
	Identities []domain.Identity `json:"identities"`
	Total      int               `json:"total"`
}

type SearchRequest struct {
	Embedding []float64 `json:"embedding"`
	Limit     int       `json:"limit"`
}

type SearchResponse struct {
	Candidates []domain.Candidate `json:"candidates"`
}

type AccessEventsResponse struct {
	Events []domain.AccessEvent `json:"events"`
}

// Session GET /api/session - current face login, expired lazily
func (h *DashboardHandler) Session(c *fiber.Ctx) error {
	view, err := h.service.Session(c.UserContext())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(view)
}

// Logout POST /api/logout - clear the session slot
func (h *DashboardHandler) Logout(c *fiber.Ctx) error {
	if err := h.service.Logout(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(LogoutResponse{OK: true})
}

// Identities GET /api/identities - enrolled identities without embeddings
func (h *DashboardHandler) Identities(c *fiber.Ctx) error {
	identities, err := h.service.Identities(c.UserContext())
	if err != nil {
		return err
	}
	if identities == nil {
		identities = []domain.Identity{}
	}
	return c.JSON(IdentitiesResponse{Identities: identities, Total: len(identities)})
}

// Search POST /api/identities/search - nearest enrolled identities
func (h *DashboardHandler) Search(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	candidates, err := h.service.Search(c.UserContext(), req.Embedding, req.Limit)
	if err != nil {
		return err
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	return c.JSON(SearchResponse{Candidates: candidates})
}

// AccessEvents GET /api/access-events - latest accepted matches
func (h *DashboardHandler) AccessEvents(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("limit must be an integer"))
		}
		limit = n
	}

	events, err := h.service.AccessEvents(c.UserContext(), limit)
	if err != nil {
		return err
	}
	if events == nil {
		events = []domain.AccessEvent{}
	}
	return c.JSON(AccessEventsResponse{Events: events})
}
