package bom

import (
	"errors"
	"time"
)

// Header identifies the bill of materials producing a root material.
// BaseQuantity is the quantity of the root material one pass of this
// BOM yields; line quantities are expressed per BaseQuantity.
type Header struct {
	ID            int64
	MaterialID    int64
	BaseQuantity  float64
	IsActive      bool
	EffectiveFrom time.Time
	EffectiveTo   time.Time
	Lines         []Line
}

// Line is a single component requirement of a BOM. Phantom lines are
// exploded through and never stocked or ordered themselves.
type Line struct {
	ID                  int64
	ComponentMaterialID int64
	Quantity            float64
	ScrapFactor         float64 // percent, >= 0
	IsPhantom           bool
	UnitOfMeasureID     int64
}

// Requirement is the aggregated demand for one component across an
// entire explosion. Details keeps the per-level contributions.
type Requirement struct {
	MaterialID      int64               `json:"material_id"`
	TotalQuantity   float64             `json:"total_quantity"`
	UnitOfMeasureID int64               `json:"unit_of_measure_id"`
	Details         []RequirementDetail `json:"details"`
}

// RequirementDetail records one contribution to a component's total.
// Direct children of the root are level 1; each phantom hop adds one.
type RequirementDetail struct {
	Level    int     `json:"level"`
	Quantity float64 `json:"quantity"`
}

// ErrHeaderNotFound indicates the requested BOM header does not exist.
var ErrHeaderNotFound = errors.New("bom: header not found")

// ErrInvalidQuantity indicates a non-positive required quantity.
var ErrInvalidQuantity = errors.New("bom: required quantity must be positive")

// ErrCircularReference indicates a material reachable from its own ancestry.
var ErrCircularReference = errors.New("bom: circular reference detected")
