package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// SessionRepository is the single-slot session channel between the kiosk
// (writer) and the dashboard (reader). Row id = 1 always exists.
type SessionRepository struct {
	pool PgxPool
	now  func() time.Time
}

func NewSessionRepository(pool PgxPool) *SessionRepository {
	return &SessionRepository{pool: pool, now: time.Now}
}

// NewSessionRepositoryWithClock creates a repository whose SetActive
// timestamps come from now.
func NewSessionRepositoryWithClock(pool PgxPool, now func() time.Time) *SessionRepository {
	return &SessionRepository{pool: pool, now: now}
}

// SetActive overwrites the slot with a new session starting now.
func (r *SessionRepository) SetActive(ctx context.Context, userID int64, userName string) error {
	query := `
		INSERT INTO app_session (id, user_id, user_name, started_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    user_name = EXCLUDED.user_name,
		    started_at = EXCLUDED.started_at
	`

	_, err := r.pool.Exec(ctx, query, domain.SessionRowID, userID, userName, r.now().UTC())
	if err != nil {
		return storageError("set active session", err)
	}
	return nil
}

// Read returns the session state at now, clearing the slot first when the
// session is older than ttl. The check and the clear share one row lock so
// a concurrent SetActive is never wiped.
func (r *SessionRepository) Read(ctx context.Context, now time.Time, ttl time.Duration) (domain.SessionState, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.SessionState{}, storageError("begin session read", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		SELECT user_id, user_name, started_at
		FROM app_session
		WHERE id = $1
		FOR UPDATE
	`

	var session domain.Session
	err = tx.QueryRow(ctx, query, domain.SessionRowID).Scan(&session.UserID, &session.UserName, &session.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionState{}, nil
	}
	if err != nil {
		return domain.SessionState{}, storageError("read session", err)
	}

	if !session.Active() {
		if err := tx.Commit(ctx); err != nil {
			return domain.SessionState{}, storageError("commit session read", err)
		}
		return domain.SessionState{}, nil
	}

	if session.Expired(now, ttl) {
		if _, err := tx.Exec(ctx, clearSessionQuery, domain.SessionRowID); err != nil {
			return domain.SessionState{}, storageError("expire session", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return domain.SessionState{}, storageError("commit session expiry", err)
		}
		return domain.SessionState{}, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.SessionState{}, storageError("commit session read", err)
	}

	return domain.SessionState{
		Authenticated: true,
		UserID:        *session.UserID,
		UserName:      *session.UserName,
		StartedAt:     *session.StartedAt,
	}, nil
}

const clearSessionQuery = `
	UPDATE app_session
	SET user_id = NULL, user_name = NULL, started_at = NULL
	WHERE id = $1
`

// Clear resets the slot to the unauthenticated state.
func (r *SessionRepository) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, clearSessionQuery, domain.SessionRowID); err != nil {
		return storageError("clear session", err)
	}
	return nil
}

// Get returns the raw slot without applying expiry.
func (r *SessionRepository) Get(ctx context.Context) (domain.Session, error) {
	query := `SELECT user_id, user_name, started_at FROM app_session WHERE id = $1`

	var session domain.Session
	err := r.pool.QueryRow(ctx, query, domain.SessionRowID).Scan(&session.UserID, &session.UserName, &session.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, nil
	}
	if err != nil {
		return domain.Session{}, storageError("get session", err)
	}
	return session, nil
}
