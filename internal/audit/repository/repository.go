package repository

import (
	"context"

	"mobitech-crm/backend/internal/audit/domain"
)

// Filter narrows List results; empty fields match everything.
type Filter struct {
	UserID string
	Action string
}

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// List returns entries newest first with the total count of matching rows.
	List(ctx context.Context, f Filter, limit, offset int) ([]*domain.AuditLog, int64, error)
}
