package repository

import (
	"context"
	"time"

	"mobitech-crm/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// SetMFASecret stores a fresh TOTP secret and clears the enabled/verified flags until the user confirms a code.
	SetMFASecret(ctx context.Context, userID, secret string) error
	// EnableMFA marks MFA enabled and verified.
	EnableMFA(ctx context.Context, userID string) error
	// Terminate marks the user INACTIVE with the given termination time.
	Terminate(ctx context.Context, userID string, at time.Time) error
}
