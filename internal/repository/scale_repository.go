package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opopir/opopir-backend/internal/model"
)

// ScaleRepository handles scale catalog data access.
type ScaleRepository struct {
	pool *pgxpool.Pool
}

// NewScaleRepository creates a new ScaleRepository.
func NewScaleRepository(pool *pgxpool.Pool) *ScaleRepository {
	return &ScaleRepository{pool: pool}
}

// List retrieves all scales ordered by code.
func (r *ScaleRepository) List(ctx context.Context) ([]model.Scale, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name FROM scales ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scales []model.Scale
	for rows.Next() {
		var s model.Scale
		if err := rows.Scan(&s.ID, &s.Code, &s.Name); err != nil {
			return nil, err
		}
		scales = append(scales, s)
	}
	return scales, rows.Err()
}

// Create inserts a scale; used by the seeding tool.
func (r *ScaleRepository) Create(ctx context.Context, s *model.Scale) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO scales (code, name)
		 VALUES ($1, $2)
		 ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		s.Code, s.Name,
	).Scan(&s.ID)
}
