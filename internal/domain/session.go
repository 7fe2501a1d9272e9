package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionRowID is the fixed primary key of the single session slot.
const SessionRowID = 1

// Session is the raw single-slot record shared by the kiosk and the
// dashboard. All three fields are set together or all are nil.
type Session struct {
	UserID    *int64     `json:"user_id"`
	UserName  *string    `json:"user_name"`
	StartedAt *time.Time `json:"started_at"`
}

func (s Session) Active() bool {
	return s.UserID != nil && s.UserName != nil && s.StartedAt != nil
}

// Expired reports whether an active session is older than ttl at now.
// The boundary itself is still valid.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	if !s.Active() {
		return false
	}
	return now.Sub(*s.StartedAt) > ttl
}

// SessionState is what a reader gets after lazy expiry has been applied.
type SessionState struct {
	Authenticated bool
	UserID        int64
	UserName      string
	StartedAt     time.Time
}

// AccessEvent records one accepted match at the kiosk.
type AccessEvent struct {
	ID             uuid.UUID `json:"id"`
	IdentityID     int64     `json:"identity_id"`
	IdentityName   string    `json:"identity_name"`
	Distance       float64   `json:"distance"`
	RelayTriggered bool      `json:"relay_triggered"`
	CreatedAt      time.Time `json:"created_at"`
}
