package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// IdentityRepository is the embedding gallery. Every enrolled identity is
// stored with its descriptor as a JSON array and as a pgvector column for
// indexed search.
type IdentityRepository struct {
	pool PgxPool
}

func NewIdentityRepository(pool PgxPool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// List returns the full gallery ordered by id.
func (r *IdentityRepository) List(ctx context.Context) ([]domain.Identity, error) {
	query := `
		SELECT id, name, profile, descriptor, created_at
		FROM identities
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storageError("list identities", err)
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0)
	for rows.Next() {
		var (
			identity   domain.Identity
			profile    string
			descriptor []byte
		)
		if err := rows.Scan(&identity.ID, &identity.Name, &profile, &descriptor, &identity.CreatedAt); err != nil {
			return nil, storageError("scan identity", err)
		}
		identity.Profile = domain.Profile(profile)
		if err := json.Unmarshal(descriptor, &identity.Embedding); err != nil {
			return nil, storageError(fmt.Sprintf("decode descriptor of identity %d", identity.ID), err)
		}
		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate identities", err)
	}

	return identities, nil
}

// Create validates and inserts identity, filling its ID and CreatedAt.
// The insert is a single autocommit statement, durable once it returns.
func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	descriptor, err := json.Marshal(identity.Embedding)
	if err != nil {
		return domain.ErrInvalidEmbedding.WithError(err)
	}

	query := `
		INSERT INTO identities (name, profile, descriptor, embedding, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err = r.pool.QueryRow(ctx, query,
		identity.Name,
		string(identity.Profile),
		string(descriptor),
		toVector(identity.Embedding),
	).Scan(&identity.ID, &identity.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName.WithError(fmt.Errorf("name %q", identity.Name))
		}
		return storageError("create identity", err)
	}

	return nil
}

func (r *IdentityRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM identities WHERE name = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, storageError("check identity name", err)
	}
	return exists, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	query := `
		SELECT id, name, profile, created_at
		FROM identities
		WHERE id = $1
	`

	var identity domain.Identity
	var profile string
	err := r.pool.QueryRow(ctx, query, id).Scan(&identity.ID, &identity.Name, &profile, &identity.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, storageError("get identity by id", err)
	}
	identity.Profile = domain.Profile(profile)

	return &identity, nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return storageError("delete identity", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

// Nearest runs an indexed L2 search over the gallery. The recognition loop
// never calls it; it backs the dashboard diagnostics endpoint.
func (r *IdentityRepository) Nearest(ctx context.Context, embedding []float64, limit int) ([]domain.Candidate, error) {
	if len(embedding) != domain.EmbeddingDimension {
		return nil, domain.ErrInvalidEmbedding.WithError(fmt.Errorf("got %d dimensions", len(embedding)))
	}
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT id, name, profile, embedding <-> $1 AS distance
		FROM identities
		ORDER BY embedding <-> $1
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, toVector(embedding), limit)
	if err != nil {
		return nil, storageError("search identities", err)
	}
	defer rows.Close()

	candidates := make([]domain.Candidate, 0, limit)
	for rows.Next() {
		var c domain.Candidate
		var profile string
		if err := rows.Scan(&c.IdentityID, &c.Name, &profile, &c.Distance); err != nil {
			return nil, storageError("scan candidate", err)
		}
		c.Profile = domain.Profile(profile)
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate candidates", err)
	}

	return candidates, nil
}
