package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"mobitech-crm/backend/internal/db"
	"mobitech-crm/backend/internal/user/domain"
)

const userColumns = `id, phone, password_hash, email, name, mfa_secret, mfa_enabled, mfa_verified,
	is_admin, status, date_of_termination, created_at, updated_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a user repository that uses the given pool for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByPhone returns the user registered with phone, or nil if not found.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
// Unique violations are reported as domain.ErrPhoneTaken or domain.ErrEmailTaken.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, phone, password_hash, email, name, mfa_secret, mfa_enabled, mfa_verified,
			is_admin, status, date_of_termination, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.ID, u.Phone, u.PasswordHash, nullIfEmpty(u.Email), u.Name, nullIfEmpty(u.MFASecret),
		u.MFAEnabled, u.MFAVerified, u.IsAdmin, string(u.Status), u.DateOfTermination, u.CreatedAt, u.UpdatedAt,
	)
	switch {
	case db.IsUniqueViolation(err, "users_phone_key"):
		return domain.ErrPhoneTaken
	case db.IsUniqueViolation(err, "users_email_key"):
		return domain.ErrEmailTaken
	}
	return err
}

// SetMFASecret stores secret for the user and resets mfa_enabled/mfa_verified.
func (r *PostgresRepository) SetMFASecret(ctx context.Context, userID, secret string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET mfa_secret = $2, mfa_enabled = FALSE, mfa_verified = FALSE, updated_at = now()
		WHERE id = $1`, userID, secret)
	return err
}

// EnableMFA sets mfa_enabled and mfa_verified to true.
func (r *PostgresRepository) EnableMFA(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET mfa_enabled = TRUE, mfa_verified = TRUE, updated_at = now()
		WHERE id = $1`, userID)
	return err
}

// Terminate sets status INACTIVE and date_of_termination.
func (r *PostgresRepository) Terminate(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET status = 'INACTIVE', date_of_termination = $2, updated_at = now()
		WHERE id = $1`, userID, at)
	return err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		u             domain.User
		email, secret *string
		status        string
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Phone, &u.PasswordHash, &email, &u.Name, &secret, &u.MFAEnabled, &u.MFAVerified,
		&u.IsAdmin, &status, &u.DateOfTermination, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if email != nil {
		u.Email = *email
	}
	if secret != nil {
		u.MFASecret = *secret
	}
	u.Status = domain.UserStatus(status)
	return &u, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
