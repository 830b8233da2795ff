package repository

import (
	"context"
	"time"

	"mobitech-crm/backend/internal/otp/domain"
)

// Repository defines persistence for OTP challenges.
type Repository interface {
	Create(ctx context.Context, c *domain.Challenge) error
	// Redeem atomically marks the newest unused, unexpired challenge matching identifier and codeHash as used.
	// It reports false when no such challenge exists; rows are never touched in that case.
	Redeem(ctx context.Context, identifier, codeHash string, now time.Time) (bool, error)
	// DeleteExpired removes challenges that expired before cutoff and returns how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
