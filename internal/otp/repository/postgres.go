package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"mobitech-crm/backend/internal/db"
	"mobitech-crm/backend/internal/otp/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an OTP challenge repository that uses the given pool.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the challenge. The challenge must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO otp_challenges (id, identifier, code_hash, purpose, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Identifier, c.CodeHash, string(c.Purpose), c.ExpiresAt, c.Used, c.CreatedAt,
	)
	return err
}

// Redeem runs as a single statement. The row lock makes concurrent redeemers of the same code
// race on one row; SKIP LOCKED lets the loser see no row instead of waiting.
func (r *PostgresRepository) Redeem(ctx context.Context, identifier, codeHash string, now time.Time) (bool, error) {
	var id string
	err := r.db.QueryRow(ctx, `
		UPDATE otp_challenges SET used = TRUE
		WHERE id = (
			SELECT id FROM otp_challenges
			WHERE identifier = $1 AND code_hash = $2 AND used = FALSE AND expires_at > $3
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`,
		identifier, codeHash, now,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteExpired removes challenges whose expires_at is before cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM otp_challenges WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
