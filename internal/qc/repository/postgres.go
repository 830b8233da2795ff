package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mobitech-crm/backend/internal/db"
	"mobitech-crm/backend/internal/qc/domain"
)

const recordColumns = `id, imei, brand, model, tested_by, results, grade, notes, created_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a QC record repository backed by conn.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists rec. ID and CreatedAt must be set.
func (r *PostgresRepository) Create(ctx context.Context, rec *domain.Record) error {
	results, err := encodeResults(rec.Results)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO qc_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.IMEI, rec.Brand, rec.Model, rec.TestedBy, results, string(rec.Grade), rec.Notes, rec.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM qc_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *PostgresRepository) List(ctx context.Context, imei string, limit, offset int) ([]*domain.Record, int64, error) {
	var filter *string
	if imei != "" {
		filter = &imei
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM qc_records WHERE ($1::text IS NULL OR imei = $1)`,
		filter).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM qc_records
		WHERE ($1::text IS NULL OR imei = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*domain.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanRecord(row pgx.Row) (*domain.Record, error) {
	var (
		rec     domain.Record
		results []byte
		grade   string
	)
	if err := row.Scan(&rec.ID, &rec.IMEI, &rec.Brand, &rec.Model, &rec.TestedBy, &results, &grade, &rec.Notes, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Grade = domain.Grade(grade)
	if len(results) > 0 {
		if err := json.Unmarshal(results, &rec.Results); err != nil {
			return nil, fmt.Errorf("decode qc results: %w", err)
		}
	}
	return &rec, nil
}

func encodeResults(results map[string]domain.Result) ([]byte, error) {
	if results == nil {
		results = map[string]domain.Result{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode qc results: %w", err)
	}
	return b, nil
}
