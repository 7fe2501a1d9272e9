package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// SessionUser is the identity behind an authenticated session
type SessionUser struct {
	ID   int64  `json:"id" example:"7"`
	Name string `json:"name" example:"Alice"`
}

// SessionResponse represents the polled session state
type SessionResponse struct {
	Authenticated bool        `json:"authenticated" example:"true"`
	User          SessionUser `json:"user"`
	Profile       string      `json:"profile" example:"Moderate"`
	Welcome       string      `json:"welcome" example:"Welcome, moderate investor! Balanced risk and return."`
	StartedAt     string      `json:"started_at" example:"2025-03-01T12:00:00Z"`
}

// SessionEvent is one message on the session websocket
type SessionEvent struct {
	Type      string          `json:"type" example:"session.updated"`
	Data      SessionResponse `json:"data"`
	Timestamp string          `json:"timestamp" example:"2025-03-01T12:00:00Z"`
}

// LogoutResponse represents a successful logout
type LogoutResponse struct {
	OK bool `json:"ok" example:"true"`
}

// Identity represents one enrolled identity (embedding omitted)
type Identity struct {
	ID        int64  `json:"id" example:"7"`
	Name      string `json:"name" example:"Alice"`
	Profile   string `json:"profile" example:"Moderate"`
	CreatedAt string `json:"created_at" example:"2025-03-01T12:00:00Z"`
}

// IdentitiesResponse lists enrolled identities
type IdentitiesResponse struct {
	Identities []Identity `json:"identities"`
	Total      int        `json:"total" example:"1"`
}

// Candidate is one nearest-neighbour result
type Candidate struct {
	IdentityID int64   `json:"identity_id" example:"7"`
	Name       string  `json:"name" example:"Alice"`
	Profile    string  `json:"profile" example:"Moderate"`
	Distance   float64 `json:"distance" example:"0.31"`
}

// SearchResponse lists candidates ordered by distance
type SearchResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// AccessEvent represents one accepted match at the kiosk
type AccessEvent struct {
	ID             string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	IdentityID     int64   `json:"identity_id" example:"7"`
	IdentityName   string  `json:"identity_name" example:"Alice"`
	Distance       float64 `json:"distance" example:"0.31"`
	RelayTriggered bool    `json:"relay_triggered" example:"true"`
	CreatedAt      string  `json:"created_at" example:"2025-03-01T12:00:00Z"`
}

// AccessEventsResponse lists recent access events
type AccessEventsResponse struct {
	Events []AccessEvent `json:"events"`
}

// HealthResponse represents liveness and readiness
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version" example:"0.1.0"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "FaceGate Dashboard API",
		Version:     "v1.0.0",
		Description: "Read side of the FaceGate kiosk: face-login session, enrolled identities and access history",
		Host:        "localhost:5000",
		Path:        "/",
	})

	storageDown := response.New(ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "Backing store is not accessible"}, "503", "Service Unavailable")

	endpoints := []*endpoint.EndPoint{
		endpoint.New(
			endpoint.GET,
			"/api/session",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Current face-login session"),
			endpoint.WithDescription("Returns authenticated=false when no face was recognised within SESSION_TTL. An expired session is cleared as a side effect."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session state"),
			}),
			endpoint.WithErrors([]response.Response{storageDown}),
		),

		endpoint.New(
			endpoint.GET,
			"/ws/session",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Live session stream"),
			endpoint.WithDescription("Websocket. Sends a session.updated event whenever the polled session view changes, so browsers need not poll /api/session."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionEvent{}, "101", "Switching Protocols"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/api/logout",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Clear the session"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LogoutResponse{}, "200", "Session cleared"),
			}),
			endpoint.WithErrors([]response.Response{storageDown}),
		),

		endpoint.New(
			endpoint.GET,
			"/api/identities",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("List enrolled identities"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentitiesResponse{}, "200", "Enrolled identities"),
			}),
			endpoint.WithErrors([]response.Response{storageDown}),
		),

		endpoint.New(
			endpoint.POST,
			"/api/identities/search",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Nearest enrolled identities"),
			endpoint.WithDescription(`Body: {"embedding": [128 floats], "limit": 5}. Ranks identities by Euclidean distance using the vector index.`),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SearchResponse{}, "200", "Candidates ordered by distance"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INVALID_EMBEDDING", Message: "Embedding must have 128 dimensions"}, "422", "Unprocessable Entity"),
				storageDown,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/api/access-events",
			endpoint.WithTags("Audit"),
			endpoint.WithSummary("Recent access events"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of events (1-500, default: 50)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AccessEventsResponse{}, "200", "Newest first"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "limit must be between 1 and 500"}, "422", "Unprocessable Entity"),
				storageDown,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Process is up"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness (database ping)"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ready"}, "200", "Database reachable"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "unavailable"}, "503", "Database unreachable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
