package bom

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads BOM data from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetHeader loads a BOM header with its lines.
func (r *Repository) GetHeader(ctx context.Context, id int64) (Header, bool, error) {
	if r == nil {
		return Header{}, false, errors.New("bom repository not initialised")
	}
	var header Header
	var effectiveTo *time.Time
	err := r.pool.QueryRow(ctx, `SELECT id, material_id, base_quantity, is_active, effective_from, effective_to
FROM bom_headers
WHERE id=$1`, id).Scan(&header.ID, &header.MaterialID, &header.BaseQuantity, &header.IsActive, &header.EffectiveFrom, &effectiveTo)
	if errors.Is(err, pgx.ErrNoRows) {
		return Header{}, false, nil
	}
	if err != nil {
		return Header{}, false, err
	}
	if effectiveTo != nil {
		header.EffectiveTo = *effectiveTo
	}
	lines, err := r.loadLines(ctx, header.ID)
	if err != nil {
		return Header{}, false, err
	}
	header.Lines = lines
	return header, true, nil
}

// GetActiveByMaterial loads the active BOM currently producing the material.
// At most one active header per material and window holds by schema constraint.
func (r *Repository) GetActiveByMaterial(ctx context.Context, materialID int64) (Header, bool, error) {
	if r == nil {
		return Header{}, false, errors.New("bom repository not initialised")
	}
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id
FROM bom_headers
WHERE material_id=$1 AND is_active
  AND effective_from <= NOW()
  AND (effective_to IS NULL OR effective_to > NOW())
ORDER BY effective_from DESC
LIMIT 1`, materialID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Header{}, false, nil
	}
	if err != nil {
		return Header{}, false, err
	}
	return r.GetHeader(ctx, id)
}

func (r *Repository) loadLines(ctx context.Context, headerID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, component_material_id, quantity, scrap_factor, is_phantom, unit_of_measure_id
FROM bom_lines
WHERE bom_header_id=$1
ORDER BY position ASC, id ASC`, headerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.ComponentMaterialID, &line.Quantity, &line.ScrapFactor, &line.IsPhantom, &line.UnitOfMeasureID); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
