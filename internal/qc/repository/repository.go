package repository

import (
	"context"

	"mobitech-crm/backend/internal/qc/domain"
)

// Repository defines persistence for QC records.
type Repository interface {
	Create(ctx context.Context, rec *domain.Record) error
	// GetByID returns nil, nil when no record has id.
	GetByID(ctx context.Context, id string) (*domain.Record, error)
	// List returns records newest first; an empty imei matches every device.
	List(ctx context.Context, imei string, limit, offset int) ([]*domain.Record, int64, error)
}
