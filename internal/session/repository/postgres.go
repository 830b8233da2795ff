package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"mobitech-crm/backend/internal/db"
	"mobitech-crm/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, ip_address, user_agent, created_at, expires_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session repository that uses the given pool for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, ip_address, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, nullIfEmpty(s.IPAddress), nullIfEmpty(s.UserAgent), s.CreatedAt, s.ExpiresAt,
	)
	return err
}

// GetActive returns the unexpired session matching id and userID, or nil if none exists.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetActive(ctx context.Context, id, userID string, now time.Time) (*domain.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE id = $1 AND user_id = $2 AND expires_at > $3`, id, userID, now)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// DeleteByID removes one session and returns the number of rows removed (0 or 1).
func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteByUser removes every session of userID.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// List returns unexpired sessions, optionally for one user, newest first.
func (r *PostgresRepository) List(ctx context.Context, f ListFilter, now time.Time, limit, offset int) ([]*domain.Session, int64, error) {
	var userID *string
	if f.UserID != "" {
		userID = &f.UserID
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM sessions
		WHERE expires_at > $1 AND ($2::text IS NULL OR user_id = $2)`, now, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE expires_at > $1 AND ($2::text IS NULL OR user_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, now, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*domain.Session, 0, limit)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteExpired removes sessions whose expires_at is before cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		s         domain.Session
		ip, agent *string
	)
	if err := row.Scan(&s.ID, &s.UserID, &ip, &agent, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if ip != nil {
		s.IPAddress = *ip
	}
	if agent != nil {
		s.UserAgent = *agent
	}
	return &s, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
