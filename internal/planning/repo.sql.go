package planning

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the planning ports against PostgreSQL and
// persists run results for the worker path.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetMaterial loads planning attributes of a material.
func (r *Repository) GetMaterial(ctx context.Context, id int64) (Material, bool, error) {
	if r == nil {
		return Material{}, false, errors.New("planning repository not initialised")
	}
	var m Material
	err := r.pool.QueryRow(ctx, `SELECT id, code, procurement_type, mrp_type, COALESCE(lot_size, 0), COALESCE(lead_time_days, 0), is_active
FROM materials
WHERE id=$1`, id).Scan(&m.ID, &m.Code, &m.ProcurementType, &m.MRPType, &m.LotSize, &m.LeadTimeDays, &m.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Material{}, false, nil
	}
	if err != nil {
		return Material{}, false, err
	}
	return m, true, nil
}

// ListMRPMaterials lists the active MRP-planned materials of an org/plant.
func (r *Repository) ListMRPMaterials(ctx context.Context, organizationID, plantID int64) ([]Material, error) {
	if r == nil {
		return nil, errors.New("planning repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, code, procurement_type, mrp_type, COALESCE(lot_size, 0), COALESCE(lead_time_days, 0), is_active
FROM materials
WHERE organization_id=$1 AND plant_id=$2 AND mrp_type='MRP' AND is_active
ORDER BY id ASC`, organizationID, plantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	materials := []Material{}
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Code, &m.ProcurementType, &m.MRPType, &m.LotSize, &m.LeadTimeDays, &m.IsActive); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return materials, nil
}

// OnHand sums on-hand quantity across storage locations.
func (r *Repository) OnHand(ctx context.Context, materialID int64) (float64, error) {
	if r == nil {
		return 0, errors.New("planning repository not initialised")
	}
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0)
FROM stock_balances
WHERE material_id=$1`, materialID).Scan(&qty)
	return qty, err
}

// GrossRequirements sums (planned - actual) consumption of the material
// by open work orders whose planned start falls in the window. Rows are
// summed as-is, without clamping negatives.
func (r *Repository) GrossRequirements(ctx context.Context, materialID int64, from, to time.Time) (float64, error) {
	if r == nil {
		return 0, errors.New("planning repository not initialised")
	}
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(wom.planned_quantity - wom.actual_quantity), 0)
FROM work_order_materials wom
JOIN work_orders wo ON wo.id = wom.work_order_id
WHERE wom.material_id=$1
  AND wo.status IN ('PLANNED','RELEASED','IN_PROGRESS')
  AND wo.planned_start BETWEEN $2 AND $3`, materialID, from, to).Scan(&qty)
	return qty, err
}

// ScheduledReceipts sums the open production of the material by released
// or in-progress work orders in the window.
func (r *Repository) ScheduledReceipts(ctx context.Context, materialID int64, from, to time.Time) (float64, error) {
	if r == nil {
		return 0, errors.New("planning repository not initialised")
	}
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(wo.planned_quantity - wo.actual_quantity), 0)
FROM work_orders wo
WHERE wo.material_id=$1
  AND wo.status IN ('RELEASED','IN_PROGRESS')
  AND wo.planned_start BETWEEN $2 AND $3`, materialID, from, to).Scan(&qty)
	return qty, err
}

// GetWorkOrder loads the planning slice of a work order.
func (r *Repository) GetWorkOrder(ctx context.Context, id int64) (WorkOrder, bool, error) {
	if r == nil {
		return WorkOrder{}, false, errors.New("planning repository not initialised")
	}
	var wo WorkOrder
	err := r.pool.QueryRow(ctx, `SELECT id, material_id, planned_quantity, planned_start, status
FROM work_orders
WHERE id=$1`, id).Scan(&wo.ID, &wo.MaterialID, &wo.PlannedQuantity, &wo.PlannedStart, &wo.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkOrder{}, false, nil
	}
	if err != nil {
		return WorkOrder{}, false, err
	}
	return wo, true, nil
}

// SaveResult persists the run row and its planned orders in one
// transaction. FAILED runs are stored too; their partial orders are not.
func (r *Repository) SaveResult(ctx context.Context, result RunResult) error {
	if r == nil {
		return errors.New("planning repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	run := result.Run
	_, err = tx.Exec(ctx, `INSERT INTO mrp_runs (id, run_number, organization_id, plant_id, horizon_start, horizon_end,
materials_processed, planned_orders_created, total_shortage_qty, status, started_at, finished_at, failure_reason)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		run.ID, run.Number, run.OrganizationID, run.PlantID, run.HorizonStart, run.HorizonEnd,
		run.MaterialsProcessed, run.PlannedOrdersCreated, run.TotalShortageQty, string(run.Status),
		run.StartedAt, nullTime(run.FinishedAt), nullString(run.FailureReason))
	if err != nil {
		return err
	}
	if run.Status == RunStatusCompleted {
		for _, order := range result.Orders {
			_, err = tx.Exec(ctx, `INSERT INTO planned_orders (id, run_id, material_id, order_type, planned_quantity, need_date, order_date, source, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				order.ID, run.ID, order.MaterialID, string(order.OrderType), order.Quantity,
				order.NeedDate, order.OrderDate, order.Source, order.Status, order.CreatedAt)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
