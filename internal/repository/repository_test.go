package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

func testEmbedding(seed float64) []float64 {
	e := make([]float64, domain.EmbeddingDimension)
	for i := range e {
		e[i] = seed + float64(i)/1000
	}
	return e
}

func descriptorJSON(t *testing.T, e []float64) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

// IdentityRepository Tests

func TestIdentityRepository_List(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantLen   int
		wantErr   error
	}{
		{
			name: "returns gallery ordered by id",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "name", "profile", "descriptor", "created_at"}).
					AddRow(int64(1), "Alice", "Moderate", descriptorJSON(t, testEmbedding(0.1)), now).
					AddRow(int64(2), "Bob", "Aggressive", descriptorJSON(t, testEmbedding(0.2)), now)
				mock.ExpectQuery(`SELECT id, name, profile, descriptor, created_at FROM identities ORDER BY id`).
					WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name: "empty gallery",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM identities ORDER BY id`).
					WillReturnRows(pgxmock.NewRows([]string{"id", "name", "profile", "descriptor", "created_at"}))
			},
			wantLen: 0,
		},
		{
			name: "storage failure",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM identities ORDER BY id`).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: domain.ErrStorageUnavailable,
		},
		{
			name: "corrupt descriptor",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "name", "profile", "descriptor", "created_at"}).
					AddRow(int64(1), "Alice", "Moderate", []byte("not json"), now)
				mock.ExpectQuery(`FROM identities ORDER BY id`).WillReturnRows(rows)
			},
			wantErr: domain.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewIdentityRepository(mock)
			got, err := repo.List(context.Background())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Len(t, got, tt.wantLen)
				if tt.wantLen > 0 {
					assert.Equal(t, "Alice", got[0].Name)
					assert.Equal(t, domain.ProfileModerate, got[0].Profile)
					assert.Len(t, got[0].Embedding, domain.EmbeddingDimension)
					assert.InDelta(t, 0.1, got[0].Embedding[0], 1e-9)
				}
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIdentityRepository_Create(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		identity  domain.Identity
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantID    int64
	}{
		{
			name:     "successful enrollment",
			identity: domain.Identity{Name: " Alice ", Profile: domain.ProfileModerate, Embedding: testEmbedding(0.1)},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO identities`).
					WithArgs("Alice", "Moderate", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))
			},
			wantID: 42,
		},
		{
			name:     "duplicate name",
			identity: domain.Identity{Name: "Alice", Profile: domain.ProfileModerate, Embedding: testEmbedding(0.1)},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO identities`).
					WithArgs("Alice", "Moderate", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
			},
			wantErr: domain.ErrDuplicateName,
		},
		{
			name:      "empty name never reaches the database",
			identity:  domain.Identity{Name: "  ", Profile: domain.ProfileModerate, Embedding: testEmbedding(0.1)},
			mockSetup: func(mock pgxmock.PgxPoolIface) {},
			wantErr:   domain.ErrInvalidInput,
		},
		{
			name:      "invalid profile",
			identity:  domain.Identity{Name: "Alice", Profile: "Reckless", Embedding: testEmbedding(0.1)},
			mockSetup: func(mock pgxmock.PgxPoolIface) {},
			wantErr:   domain.ErrInvalidInput,
		},
		{
			name:      "wrong dimension",
			identity:  domain.Identity{Name: "Alice", Profile: domain.ProfileModerate, Embedding: []float64{1, 2, 3}},
			mockSetup: func(mock pgxmock.PgxPoolIface) {},
			wantErr:   domain.ErrInvalidEmbedding,
		},
		{
			name:     "storage failure",
			identity: domain.Identity{Name: "Alice", Profile: domain.ProfileModerate, Embedding: testEmbedding(0.1)},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO identities`).
					WillReturnError(errors.New("disk full"))
			},
			wantErr: domain.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewIdentityRepository(mock)
			identity := tt.identity
			err = repo.Create(context.Background(), &identity)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, identity.ID)
				assert.Equal(t, "Alice", identity.Name)
				assert.Equal(t, now, identity.CreatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIdentityRepository_ExistsByName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM identities WHERE name = \$1\)`).
		WithArgs("Alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewIdentityRepository(mock)
	exists, err := repo.ExistsByName(context.Background(), "Alice")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepository_GetByID(t *testing.T) {
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, name, profile, created_at FROM identities WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "profile", "created_at"}).
				AddRow(int64(3), "Carol", "Conservative", now))

		got, err := NewIdentityRepository(mock).GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Carol", got.Name)
		assert.Equal(t, domain.ProfileConservative, got.Profile)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM identities WHERE id = \$1`).
			WithArgs(int64(9)).
			WillReturnError(pgx.ErrNoRows)

		_, err = NewIdentityRepository(mock).GetByID(context.Background(), 9)
		assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIdentityRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"deleted", 1, nil},
		{"missing", 0, domain.ErrIdentityNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectExec(`DELETE FROM identities WHERE id = \$1`).
				WithArgs(int64(5)).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err = NewIdentityRepository(mock).Delete(context.Background(), 5)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIdentityRepository_Nearest(t *testing.T) {
	t.Run("returns candidates by distance", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"id", "name", "profile", "distance"}).
			AddRow(int64(1), "Alice", "Moderate", 0.12).
			AddRow(int64(2), "Bob", "Aggressive", 0.61)
		mock.ExpectQuery(`SELECT id, name, profile, embedding <-> \$1 AS distance FROM identities ORDER BY embedding <-> \$1 LIMIT \$2`).
			WithArgs(pgxmock.AnyArg(), 2).
			WillReturnRows(rows)

		got, err := NewIdentityRepository(mock).Nearest(context.Background(), testEmbedding(0.1), 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Alice", got[0].Name)
		assert.InDelta(t, 0.12, got[0].Distance, 1e-9)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects wrong dimension", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		_, err = NewIdentityRepository(mock).Nearest(context.Background(), []float64{1}, 2)
		assert.ErrorIs(t, err, domain.ErrInvalidEmbedding)
	})
}

// SessionRepository Tests

func TestSessionRepository_SetActive(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO app_session`).
		WithArgs(domain.SessionRowID, int64(7), "Alice", fixed).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewSessionRepositoryWithClock(mock, func() time.Time { return fixed })
	require.NoError(t, repo.SetActive(context.Background(), 7, "Alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_SetActiveIsIdempotent(t *testing.T) {
	first := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(3 * time.Second)
	clock := []time.Time{first, second}
	now := func() time.Time {
		next := clock[0]
		clock = clock[1:]
		return next
	}

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := int64(7)
	userName := "Alice"
	for _, at := range []time.Time{first, second} {
		at := at
		mock.ExpectExec(`INSERT INTO app_session`).
			WithArgs(domain.SessionRowID, userID, userName, at).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery(`SELECT user_id, user_name, started_at FROM app_session WHERE id = \$1`).
			WithArgs(domain.SessionRowID).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "user_name", "started_at"}).
				AddRow(&userID, &userName, &at))
	}

	repo := NewSessionRepositoryWithClock(mock, now)
	ctx := context.Background()

	require.NoError(t, repo.SetActive(ctx, userID, userName))
	before, err := repo.Get(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.SetActive(ctx, userID, userName))
	after, err := repo.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, *before.UserID, *after.UserID)
	assert.Equal(t, *before.UserName, *after.UserName)
	assert.True(t, after.StartedAt.After(*before.StartedAt), "started_at moves forward")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Read(t *testing.T) {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 10 * time.Second
	userID := int64(7)
	userName := "Alice"

	activeRow := func() *pgxmock.Rows {
		return pgxmock.NewRows([]string{"user_id", "user_name", "started_at"}).
			AddRow(&userID, &userName, &started)
	}

	tests := []struct {
		name      string
		now       time.Time
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantAuth  bool
		wantErr   error
	}{
		{
			name: "fresh session",
			now:  started.Add(5 * time.Second),
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT user_id, user_name, started_at FROM app_session WHERE id = \$1 FOR UPDATE`).
					WithArgs(domain.SessionRowID).
					WillReturnRows(activeRow())
				mock.ExpectCommit()
			},
			wantAuth: true,
		},
		{
			name: "exactly at ttl is still valid",
			now:  started.Add(ttl),
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).WithArgs(domain.SessionRowID).WillReturnRows(activeRow())
				mock.ExpectCommit()
			},
			wantAuth: true,
		},
		{
			name: "expired session is cleared in the same transaction",
			now:  started.Add(11 * time.Second),
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).WithArgs(domain.SessionRowID).WillReturnRows(activeRow())
				mock.ExpectExec(`UPDATE app_session SET user_id = NULL, user_name = NULL, started_at = NULL WHERE id = \$1`).
					WithArgs(domain.SessionRowID).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectCommit()
			},
			wantAuth: false,
		},
		{
			name: "repeat read after expiry stays logged out",
			now:  started.Add(12 * time.Second),
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).WithArgs(domain.SessionRowID).
					WillReturnRows(pgxmock.NewRows([]string{"user_id", "user_name", "started_at"}).AddRow(nil, nil, nil))
				mock.ExpectCommit()
			},
			wantAuth: false,
		},
		{
			name: "empty slot",
			now:  started,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).WithArgs(domain.SessionRowID).
					WillReturnRows(pgxmock.NewRows([]string{"user_id", "user_name", "started_at"}).AddRow(nil, nil, nil))
				mock.ExpectCommit()
			},
			wantAuth: false,
		},
		{
			name: "begin fails",
			now:  started,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
			},
			wantErr: domain.ErrStorageUnavailable,
		},
		{
			name: "expiry write fails",
			now:  started.Add(time.Minute),
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FOR UPDATE`).WithArgs(domain.SessionRowID).WillReturnRows(activeRow())
				mock.ExpectExec(`UPDATE app_session`).WillReturnError(errors.New("read-only transaction"))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewSessionRepository(mock)
			got, err := repo.Read(context.Background(), tt.now, ttl)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAuth, got.Authenticated)
				if tt.wantAuth {
					assert.Equal(t, userID, got.UserID)
					assert.Equal(t, userName, got.UserName)
					assert.True(t, started.Equal(got.StartedAt))
				}
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSessionRepository_Clear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE app_session SET user_id = NULL`).
		WithArgs(domain.SessionRowID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewSessionRepository(mock).Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// AccessEventRepository Tests

func TestAccessEventRepository_Create(t *testing.T) {
	now := time.Now()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO access_events`).
		WithArgs(pgxmock.AnyArg(), int64(1), "Alice", 0.31, true).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	event := &domain.AccessEvent{IdentityID: 1, IdentityName: "Alice", Distance: 0.31, RelayTriggered: true}
	require.NoError(t, NewAccessEventRepository(mock).Create(context.Background(), event))

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, now, event.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessEventRepository_ListRecent(t *testing.T) {
	now := time.Now()
	id := uuid.New()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM access_events ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "identity_id", "identity_name", "distance", "relay_triggered", "created_at"}).
			AddRow(id, int64(1), "Alice", 0.31, true, now))

	events, err := NewAccessEventRepository(mock).ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessEventRepository_DeleteOlderThan(t *testing.T) {
	cutoff := time.Now().Add(-720 * time.Hour)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM access_events WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	n, err := NewAccessEventRepository(mock).DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23514"}))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "identities_name_key"`)))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}
