package planning

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProcurementType states how a material is obtained.
type ProcurementType string

const (
	// ProcurementPurchase means the material is bought.
	ProcurementPurchase ProcurementType = "PURCHASE"
	// ProcurementManufacture means the material is produced in house.
	ProcurementManufacture ProcurementType = "MANUFACTURE"
	// ProcurementBoth allows either; planning defaults it to purchasing.
	ProcurementBoth ProcurementType = "BOTH"
)

// MRPType marks whether a material participates in MRP runs.
type MRPType string

const (
	// MRPTypePlanned materials are picked up by RunMRP.
	MRPTypePlanned MRPType = "MRP"
	// MRPTypeNone materials are ignored by the planner.
	MRPTypeNone MRPType = "NONE"
)

// Material carries the planning attributes of a material. Treated as
// immutable for the duration of a run.
type Material struct {
	ID              int64
	Code            string
	ProcurementType ProcurementType
	MRPType         MRPType
	LotSize         float64 // default fixed-lot quantity; 0 means unset
	LeadTimeDays    int
	IsActive        bool
}

// OrderType distinguishes purchase from production planned orders.
type OrderType string

const (
	// OrderTypePurchase is a proposed purchase order.
	OrderTypePurchase OrderType = "PURCHASE"
	// OrderTypeProduction is a proposed production order.
	OrderTypeProduction OrderType = "PRODUCTION"
)

// OrderStatusPlanned is the only status this engine emits; conversion to
// firm orders happens downstream.
const OrderStatusPlanned = "PLANNED"

// OrderSourceMRP marks orders proposed by the planning engine.
const OrderSourceMRP = "MRP"

// PlannedOrder is a not yet committed order covering a shortage. Never
// mutated after creation.
type PlannedOrder struct {
	ID         uuid.UUID
	MaterialID int64
	OrderType  OrderType
	Quantity   float64 // post lot-sizing
	NeedDate   time.Time
	OrderDate  time.Time // NeedDate minus the material's lead time
	Source     string
	Status     string
	CreatedAt  time.Time
}

// NetRequirements is the netting outcome for one material over a window.
type NetRequirements struct {
	MaterialID        int64
	GrossRequirements float64
	ScheduledReceipts float64
	OnHand            float64
	NetRequirements   float64
	ShortageDates     []time.Time
}

// RunStatus tracks the run state machine: created RUNNING, transitions
// exactly once to COMPLETED or FAILED.
type RunStatus string

const (
	// RunStatusRunning is the initial state.
	RunStatusRunning RunStatus = "RUNNING"
	// RunStatusCompleted is the terminal success state.
	RunStatusCompleted RunStatus = "COMPLETED"
	// RunStatusFailed is the terminal failure state.
	RunStatusFailed RunStatus = "FAILED"
)

// Run is one execution of the planning pipeline for an org/plant.
type Run struct {
	ID                   uuid.UUID
	Number               string
	OrganizationID       int64
	PlantID              int64
	HorizonStart         time.Time
	HorizonEnd           time.Time
	MaterialsProcessed   int
	PlannedOrdersCreated int
	TotalShortageQty     float64
	Status               RunStatus
	StartedAt            time.Time
	FinishedAt           time.Time
	FailureReason        string
}

// MaterialOutcome is the result of planning a single material. The final
// run state is a fold over these; no counter is mutated mid-loop.
type MaterialOutcome struct {
	MaterialID int64
	Shortage   float64
	Orders     []PlannedOrder
}

// RunResult hands the run and its planned orders back as plain data.
// Persistence is the caller's concern.
type RunResult struct {
	Run    Run
	Orders []PlannedOrder
}

// WorkOrderStatus enumerates the states relevant to demand and receipts.
type WorkOrderStatus string

const (
	// WorkOrderPlanned counts toward gross demand only.
	WorkOrderPlanned WorkOrderStatus = "PLANNED"
	// WorkOrderReleased counts toward demand and scheduled receipts.
	WorkOrderReleased WorkOrderStatus = "RELEASED"
	// WorkOrderInProgress counts toward demand and scheduled receipts.
	WorkOrderInProgress WorkOrderStatus = "IN_PROGRESS"
)

// WorkOrder is the slice of a work order the planner needs.
type WorkOrder struct {
	ID              int64
	MaterialID      int64
	PlannedQuantity float64
	PlannedStart    time.Time
	Status          WorkOrderStatus
}

// RequirementLine is one immediate material need of a work order.
type RequirementLine struct {
	MaterialID        int64
	Quantity          float64
	UnitOfMeasureID   int64
	NeedDate          time.Time
	ParentWorkOrderID int64
}

// ErrMaterialNotFound indicates the requested material does not exist.
var ErrMaterialNotFound = errors.New("planning: material not found")

// ErrWorkOrderNotFound indicates the requested work order does not exist.
var ErrWorkOrderNotFound = errors.New("planning: work order not found")

// ErrInvalidQuantity indicates a non-positive quantity where a positive
// one is required.
var ErrInvalidQuantity = errors.New("planning: quantity must be positive")

// ErrInsufficientInventory is not raised by this engine; costing
// collaborators composed with it propagate the kind through here so
// callers can classify it uniformly.
var ErrInsufficientInventory = errors.New("planning: insufficient inventory")
