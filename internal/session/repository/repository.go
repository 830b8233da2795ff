package repository

import (
	"context"
	"time"

	"mobitech-crm/backend/internal/session/domain"
)

// ListFilter narrows List results. An empty UserID lists every user's sessions.
type ListFilter struct {
	UserID string
}

// Repository defines persistence for sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetActive returns the session with id owned by userID that is unexpired at now, or nil.
	GetActive(ctx context.Context, id, userID string, now time.Time) (*domain.Session, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	// List returns active sessions newest first, with the total count of matching rows.
	List(ctx context.Context, f ListFilter, now time.Time, limit, offset int) ([]*domain.Session, int64, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
