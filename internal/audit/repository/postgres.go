package repository

import (
	"context"

	"mobitech-crm/backend/internal/audit/domain"
	"mobitech-crm/backend/internal/db"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an audit log repository that uses the given pool for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the audit log. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, nullIfEmpty(a.UserID), a.Action, a.Resource, a.IP, nullIfEmpty(a.Metadata), a.CreatedAt,
	)
	return err
}

// List returns audit logs matching f, newest first, paginated by limit and offset.
func (r *PostgresRepository) List(ctx context.Context, f Filter, limit, offset int) ([]*domain.AuditLog, int64, error) {
	userID, action := nullIfEmpty(f.UserID), nullIfEmpty(f.Action)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM audit_logs
		WHERE ($1::text IS NULL OR user_id = $1) AND ($2::text IS NULL OR action = $2)`,
		userID, action).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT id, user_id, action, resource, ip, metadata, created_at FROM audit_logs
		WHERE ($1::text IS NULL OR user_id = $1) AND ($2::text IS NULL OR action = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, userID, action, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*domain.AuditLog, 0, limit)
	for rows.Next() {
		var (
			a        domain.AuditLog
			uid, met *string
		)
		if err := rows.Scan(&a.ID, &uid, &a.Action, &a.Resource, &a.IP, &met, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		if uid != nil {
			a.UserID = *uid
		}
		if met != nil {
			a.Metadata = *met
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
