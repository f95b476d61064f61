package planning

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Strategy converts a net requirement into an order quantity.
type Strategy interface {
	OrderQuantity(netRequirement float64) (float64, error)
}

// StrategyTag names a lot-sizing rule for callers that carry rules as
// loose data (job payloads, persisted material settings). Code that can
// name the rule statically should construct the strategy struct directly.
type StrategyTag string

const (
	// TagFixedLotSize rounds the requirement up to whole lots.
	TagFixedLotSize StrategyTag = "FIXED_LOT_SIZE"
	// TagPeriodOrderQuantity covers the demand of the next N periods.
	TagPeriodOrderQuantity StrategyTag = "PERIOD_ORDER_QUANTITY"
)

// ErrUnknownStrategy indicates an unrecognised lot-sizing rule tag.
var ErrUnknownStrategy = errors.New("planning: unknown lot sizing strategy")

// ErrUnknownPeriodType indicates an unrecognised POQ period type.
var ErrUnknownPeriodType = errors.New("planning: unknown period type")

// ErrMissingParameter indicates a required strategy parameter is absent;
// the wrapped message names the field.
var ErrMissingParameter = errors.New("planning: missing strategy parameter")

// FixedLotSize orders in whole multiples of LotSize: the smallest
// multiple covering the requirement, at least one lot for any positive
// requirement.
type FixedLotSize struct {
	LotSize float64
}

// OrderQuantity implements Strategy.
func (f FixedLotSize) OrderQuantity(netRequirement float64) (float64, error) {
	if f.LotSize <= 0 {
		return 0, fmt.Errorf("%w: fixed_lot_size", ErrMissingParameter)
	}
	if netRequirement <= 0 {
		return 0, nil
	}
	lots := math.Ceil(netRequirement / f.LotSize)
	if lots < 1 {
		lots = 1
	}
	return lots * f.LotSize, nil
}

// PeriodType is the granularity of a POQ demand forecast.
type PeriodType string

const (
	// PeriodDaily spans one day.
	PeriodDaily PeriodType = "DAILY"
	// PeriodWeekly spans seven days.
	PeriodWeekly PeriodType = "WEEKLY"
	// PeriodMonthly spans thirty days.
	PeriodMonthly PeriodType = "MONTHLY"
)

// Days returns the day span of the period type.
func (p PeriodType) Days() (int, error) {
	switch p {
	case PeriodDaily:
		return 1, nil
	case PeriodWeekly:
		return 7, nil
	case PeriodMonthly:
		return 30, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPeriodType, string(p))
	}
}

// PeriodDemand is one period's forecast demand.
type PeriodDemand struct {
	Period   time.Time
	Quantity float64
}

// PeriodOrderQuantity sums the demand of the first PeriodsToCover entries
// of Requirements. The list is taken in the order supplied and must
// already be chronological; entries beyond the available count are simply
// absent from the sum.
type PeriodOrderQuantity struct {
	Requirements   []PeriodDemand
	PeriodType     PeriodType
	PeriodsToCover int
}

// OrderQuantity implements Strategy.
func (p PeriodOrderQuantity) OrderQuantity(netRequirement float64) (float64, error) {
	if p.PeriodsToCover <= 0 {
		return 0, fmt.Errorf("%w: periods_to_cover must be positive", ErrMissingParameter)
	}
	if _, err := p.PeriodType.Days(); err != nil {
		return 0, err
	}
	n := p.PeriodsToCover
	if n > len(p.Requirements) {
		n = len(p.Requirements)
	}
	var total float64
	for _, demand := range p.Requirements[:n] {
		total += demand.Quantity
	}
	return total, nil
}

// StrategyParams carries the union of parameters a tagged rule may need.
type StrategyParams struct {
	FixedLotSize   *float64
	Requirements   []PeriodDemand
	PeriodType     PeriodType
	PeriodsToCover int
}

// NewStrategy resolves a loose tag and its parameters into a Strategy.
// Unknown tags and missing fields fail here, before any quantity math.
func NewStrategy(tag StrategyTag, params StrategyParams) (Strategy, error) {
	switch tag {
	case TagFixedLotSize:
		if params.FixedLotSize == nil {
			return nil, fmt.Errorf("%w: fixed_lot_size", ErrMissingParameter)
		}
		return FixedLotSize{LotSize: *params.FixedLotSize}, nil
	case TagPeriodOrderQuantity:
		if params.PeriodType == "" {
			return nil, fmt.Errorf("%w: period_type", ErrMissingParameter)
		}
		if _, err := params.PeriodType.Days(); err != nil {
			return nil, err
		}
		if params.PeriodsToCover <= 0 {
			return nil, fmt.Errorf("%w: periods_to_cover must be positive", ErrMissingParameter)
		}
		return PeriodOrderQuantity{
			Requirements:   params.Requirements,
			PeriodType:     params.PeriodType,
			PeriodsToCover: params.PeriodsToCover,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, string(tag))
	}
}
