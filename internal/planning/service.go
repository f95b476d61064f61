package planning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-mrp/internal/bom"
)

// MaterialPort abstracts master-data access for planning.
type MaterialPort interface {
	GetMaterial(ctx context.Context, id int64) (Material, bool, error)
	ListMRPMaterials(ctx context.Context, organizationID, plantID int64) ([]Material, error)
}

// InventoryPort reports on-hand stock summed across storage locations.
type InventoryPort interface {
	OnHand(ctx context.Context, materialID int64) (float64, error)
}

// DemandPort aggregates open work-order demand and supply. Gross demand
// is the sum of (planned - actual) consumption rows in the window;
// individual rows are not clamped to non-negative, so overproduction on
// one order offsets demand within the same window. Scheduled receipts
// sum the open production of the material itself.
type DemandPort interface {
	GrossRequirements(ctx context.Context, materialID int64, from, to time.Time) (float64, error)
	ScheduledReceipts(ctx context.Context, materialID int64, from, to time.Time) (float64, error)
	GetWorkOrder(ctx context.Context, id int64) (WorkOrder, bool, error)
}

// Shortages are pinned to a single representative date this far into the
// horizon rather than a day-by-day shortage calendar.
const shortageOffsetDays = 30

// Service runs the planning pipeline: netting, lot sizing, planned-order
// generation and the run orchestration around them.
type Service struct {
	materials MaterialPort
	inventory InventoryPort
	demand    DemandPort
	boms      *bom.Service
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. The logger is optional.
func NewService(materials MaterialPort, inventory InventoryPort, demand DemandPort, boms *bom.Service, logger *slog.Logger) *Service {
	return &Service{
		materials: materials,
		inventory: inventory,
		demand:    demand,
		boms:      boms,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CalculateNetRequirements nets gross demand against on-hand stock and
// scheduled receipts over the window. The net requirement is never
// negative.
func (s *Service) CalculateNetRequirements(ctx context.Context, materialID int64, start, end time.Time) (NetRequirements, error) {
	gross, err := s.demand.GrossRequirements(ctx, materialID, start, end)
	if err != nil {
		return NetRequirements{}, fmt.Errorf("gross requirements for material %d: %w", materialID, err)
	}
	receipts, err := s.demand.ScheduledReceipts(ctx, materialID, start, end)
	if err != nil {
		return NetRequirements{}, fmt.Errorf("scheduled receipts for material %d: %w", materialID, err)
	}
	onHand, err := s.inventory.OnHand(ctx, materialID)
	if err != nil {
		return NetRequirements{}, fmt.Errorf("on-hand for material %d: %w", materialID, err)
	}
	projected := onHand + receipts - gross
	result := NetRequirements{
		MaterialID:        materialID,
		GrossRequirements: gross,
		ScheduledReceipts: receipts,
		OnHand:            onHand,
	}
	if projected < 0 {
		result.NetRequirements = -projected
		result.ShortageDates = []time.Time{start.AddDate(0, 0, shortageOffsetDays)}
	}
	return result, nil
}

// GeneratePlannedOrders turns a positive net requirement into planned
// orders. The quantity is lot-sized with the material's fixed lot size
// (1.0 when unset); BOTH procurement defaults to purchasing. Returns a
// list to leave room for multi-order splitting.
func (s *Service) GeneratePlannedOrders(ctx context.Context, materialID int64, netRequirement float64, needDate time.Time) ([]PlannedOrder, error) {
	if netRequirement <= 0 {
		return nil, ErrInvalidQuantity
	}
	material, ok, err := s.materials.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: material %d", ErrMaterialNotFound, materialID)
	}
	lotSize := material.LotSize
	if lotSize <= 0 {
		lotSize = 1
	}
	quantity, err := FixedLotSize{LotSize: lotSize}.OrderQuantity(netRequirement)
	if err != nil {
		return nil, err
	}
	orderType := OrderTypePurchase
	if material.ProcurementType == ProcurementManufacture {
		orderType = OrderTypeProduction
	}
	order := PlannedOrder{
		ID:         uuid.New(),
		MaterialID: materialID,
		OrderType:  orderType,
		Quantity:   quantity,
		NeedDate:   needDate,
		OrderDate:  needDate.AddDate(0, 0, -material.LeadTimeDays),
		Source:     OrderSourceMRP,
		Status:     OrderStatusPlanned,
		CreatedAt:  s.now(),
	}
	return []PlannedOrder{order}, nil
}

// RunMRP plans every active MRP material of the org/plant over the
// horizon. Materials are processed sequentially; the first error flips
// the run to FAILED and is returned with the partial counts folded in.
// The result is handed back as plain data, persistence is the caller's.
func (s *Service) RunMRP(ctx context.Context, organizationID, plantID int64, horizonDays int) (RunResult, error) {
	start := s.now()
	id := uuid.New()
	run := Run{
		ID: id,
		// Timestamp for operators, id prefix so concurrent runs started
		// within the same second never collide on the unique run number.
		Number:         fmt.Sprintf("MRP-%s-%s", start.Format("20060102-150405"), id.String()[:8]),
		OrganizationID: organizationID,
		PlantID:        plantID,
		HorizonStart:   start,
		HorizonEnd:     start.AddDate(0, 0, horizonDays),
		Status:         RunStatusRunning,
		StartedAt:      start,
	}
	if s.logger != nil {
		s.logger.Info("mrp run started",
			slog.String("run_number", run.Number),
			slog.Int64("organization_id", organizationID),
			slog.Int64("plant_id", plantID),
			slog.Int("horizon_days", horizonDays))
	}
	materials, err := s.materials.ListMRPMaterials(ctx, organizationID, plantID)
	if err != nil {
		return RunResult{Run: failRun(run, nil, err, s.now())}, err
	}
	needDate := run.HorizonStart.AddDate(0, 0, shortageOffsetDays)
	outcomes := make([]MaterialOutcome, 0, len(materials))
	for _, material := range materials {
		outcome, err := s.planMaterial(ctx, material, run.HorizonStart, run.HorizonEnd, needDate)
		if err != nil {
			err = fmt.Errorf("material %d: %w", material.ID, err)
			if s.logger != nil {
				s.logger.Error("mrp run failed", slog.String("run_number", run.Number), slog.Any("error", err))
			}
			return RunResult{Run: failRun(run, outcomes, err, s.now())}, err
		}
		outcomes = append(outcomes, outcome)
	}
	result := RunResult{Run: foldRun(run, outcomes, RunStatusCompleted, s.now())}
	for _, outcome := range outcomes {
		result.Orders = append(result.Orders, outcome.Orders...)
	}
	if s.logger != nil {
		s.logger.Info("mrp run completed",
			slog.String("run_number", run.Number),
			slog.Int("materials_processed", result.Run.MaterialsProcessed),
			slog.Int("planned_orders", result.Run.PlannedOrdersCreated),
			slog.Float64("total_shortage", result.Run.TotalShortageQty))
	}
	return result, nil
}

func (s *Service) planMaterial(ctx context.Context, material Material, start, end, needDate time.Time) (MaterialOutcome, error) {
	net, err := s.CalculateNetRequirements(ctx, material.ID, start, end)
	if err != nil {
		return MaterialOutcome{}, err
	}
	outcome := MaterialOutcome{MaterialID: material.ID, Shortage: net.NetRequirements}
	if net.NetRequirements > 0 {
		orders, err := s.GeneratePlannedOrders(ctx, material.ID, net.NetRequirements, needDate)
		if err != nil {
			return MaterialOutcome{}, err
		}
		outcome.Orders = orders
	}
	return outcome, nil
}

// ExplodeRequirements lists the immediate material needs of a work order
// at its planned quantity. The BOM graph is validated for cycles before
// explosion because work-order BOMs are editable between uses. The
// shortage of a manufactured component is not fed back into another
// netting pass; expansion is single level by design.
func (s *Service) ExplodeRequirements(ctx context.Context, workOrderID int64) ([]RequirementLine, error) {
	workOrder, ok, err := s.demand.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: work order %d", ErrWorkOrderNotFound, workOrderID)
	}
	if workOrder.PlannedQuantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	header, ok, err := s.boms.ActiveHeader(ctx, workOrder.MaterialID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no active BOM for material %d", bom.ErrHeaderNotFound, workOrder.MaterialID)
	}
	if err := s.boms.ValidateNoCircularReference(ctx, header.ID); err != nil {
		return nil, err
	}
	requirements, err := s.boms.Explode(ctx, header.ID, workOrder.PlannedQuantity)
	if err != nil {
		return nil, err
	}
	lines := make([]RequirementLine, 0, len(requirements))
	for _, req := range requirements {
		lines = append(lines, RequirementLine{
			MaterialID:        req.MaterialID,
			Quantity:          req.TotalQuantity,
			UnitOfMeasureID:   req.UnitOfMeasureID,
			NeedDate:          workOrder.PlannedStart,
			ParentWorkOrderID: workOrderID,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].MaterialID < lines[j].MaterialID })
	return lines, nil
}

// foldRun produces the terminal run value from the per-material outcomes.
// The input run is not mutated. Counters accumulate only for materials
// with a shortage; a material netting to zero leaves them untouched.
func foldRun(run Run, outcomes []MaterialOutcome, status RunStatus, finished time.Time) Run {
	folded := run
	for _, outcome := range outcomes {
		if outcome.Shortage <= 0 {
			continue
		}
		folded.MaterialsProcessed++
		folded.PlannedOrdersCreated += len(outcome.Orders)
		folded.TotalShortageQty += outcome.Shortage
	}
	folded.Status = status
	folded.FinishedAt = finished
	return folded
}

func failRun(run Run, outcomes []MaterialOutcome, cause error, finished time.Time) Run {
	folded := foldRun(run, outcomes, RunStatusFailed, finished)
	if cause != nil {
		folded.FailureReason = cause.Error()
	}
	return folded
}
