package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

type AccessEventRepository struct {
	pool PgxPool
}

func NewAccessEventRepository(pool PgxPool) *AccessEventRepository {
	return &AccessEventRepository{pool: pool}
}

func (r *AccessEventRepository) Create(ctx context.Context, e *domain.AccessEvent) error {
	query := `
		INSERT INTO access_events (id, identity_id, identity_name, distance, relay_triggered, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		e.ID,
		e.IdentityID,
		e.IdentityName,
		e.Distance,
		e.RelayTriggered,
	).Scan(&e.CreatedAt)

	if err != nil {
		return storageError("create access event", err)
	}

	return nil
}

// ListRecent returns up to limit events, newest first.
func (r *AccessEventRepository) ListRecent(ctx context.Context, limit int) ([]domain.AccessEvent, error) {
	query := `
		SELECT id, identity_id, identity_name, distance, relay_triggered, created_at
		FROM access_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, storageError("list access events", err)
	}
	defer rows.Close()

	events := make([]domain.AccessEvent, 0, limit)
	for rows.Next() {
		var e domain.AccessEvent
		if err := rows.Scan(&e.ID, &e.IdentityID, &e.IdentityName, &e.Distance, &e.RelayTriggered, &e.CreatedAt); err != nil {
			return nil, storageError("scan access event", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate access events", err)
	}

	return events, nil
}

// DeleteOlderThan purges events created before cutoff.
func (r *AccessEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM access_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, storageError("purge access events", err)
	}
	return result.RowsAffected(), nil
}
