package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedLotSizeRoundsUp(t *testing.T) {
	strategy := FixedLotSize{LotSize: 20}

	qty, err := strategy.OrderQuantity(30)
	require.NoError(t, err)
	require.InDelta(t, 40, qty, 1e-9)

	qty, err = strategy.OrderQuantity(40)
	require.NoError(t, err)
	require.InDelta(t, 40, qty, 1e-9)

	// Any positive requirement orders at least one lot.
	qty, err = strategy.OrderQuantity(0.5)
	require.NoError(t, err)
	require.InDelta(t, 20, qty, 1e-9)

	qty, err = strategy.OrderQuantity(0)
	require.NoError(t, err)
	require.Zero(t, qty)
}

func TestFixedLotSizeMissingParameter(t *testing.T) {
	_, err := FixedLotSize{}.OrderQuantity(10)
	require.ErrorIs(t, err, ErrMissingParameter)
	require.Contains(t, err.Error(), "fixed_lot_size")
}

func poqDemands(quantities ...float64) []PeriodDemand {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	demands := make([]PeriodDemand, len(quantities))
	for i, qty := range quantities {
		demands[i] = PeriodDemand{Period: start.AddDate(0, 0, i), Quantity: qty}
	}
	return demands
}

func TestPeriodOrderQuantity(t *testing.T) {
	strategy := PeriodOrderQuantity{
		Requirements:   poqDemands(100, 150, 200),
		PeriodType:     PeriodDaily,
		PeriodsToCover: 3,
	}
	qty, err := strategy.OrderQuantity(0)
	require.NoError(t, err)
	require.InDelta(t, 450, qty, 1e-9)
}

func TestPeriodOrderQuantityPartialCoverage(t *testing.T) {
	strategy := PeriodOrderQuantity{
		Requirements:   poqDemands(100, 150, 200),
		PeriodType:     PeriodDaily,
		PeriodsToCover: 5,
	}
	qty, err := strategy.OrderQuantity(0)
	require.NoError(t, err)
	require.InDelta(t, 450, qty, 1e-9, "missing periods are simply absent from the sum")

	strategy.PeriodsToCover = 2
	qty, err = strategy.OrderQuantity(0)
	require.NoError(t, err)
	require.InDelta(t, 250, qty, 1e-9)
}

func TestPeriodOrderQuantityEmptyRequirements(t *testing.T) {
	strategy := PeriodOrderQuantity{PeriodType: PeriodWeekly, PeriodsToCover: 4}
	qty, err := strategy.OrderQuantity(0)
	require.NoError(t, err)
	require.Zero(t, qty)
}

func TestPeriodOrderQuantityValidation(t *testing.T) {
	_, err := PeriodOrderQuantity{PeriodType: PeriodDaily}.OrderQuantity(0)
	require.ErrorIs(t, err, ErrMissingParameter)

	_, err = PeriodOrderQuantity{PeriodType: "HOURLY", PeriodsToCover: 1}.OrderQuantity(0)
	require.ErrorIs(t, err, ErrUnknownPeriodType)
}

func TestPeriodTypeDays(t *testing.T) {
	for periodType, want := range map[PeriodType]int{PeriodDaily: 1, PeriodWeekly: 7, PeriodMonthly: 30} {
		days, err := periodType.Days()
		require.NoError(t, err)
		require.Equal(t, want, days)
	}
	_, err := PeriodType("QUARTERLY").Days()
	require.ErrorIs(t, err, ErrUnknownPeriodType)
}

func TestNewStrategyDispatch(t *testing.T) {
	lot := 20.0
	strategy, err := NewStrategy(TagFixedLotSize, StrategyParams{FixedLotSize: &lot})
	require.NoError(t, err)
	qty, err := strategy.OrderQuantity(30)
	require.NoError(t, err)
	require.InDelta(t, 40, qty, 1e-9)

	strategy, err = NewStrategy(TagPeriodOrderQuantity, StrategyParams{
		Requirements:   poqDemands(10, 20),
		PeriodType:     PeriodMonthly,
		PeriodsToCover: 2,
	})
	require.NoError(t, err)
	qty, err = strategy.OrderQuantity(0)
	require.NoError(t, err)
	require.InDelta(t, 30, qty, 1e-9)
}

func TestNewStrategyValidation(t *testing.T) {
	_, err := NewStrategy("ECONOMIC_ORDER_QUANTITY", StrategyParams{})
	require.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = NewStrategy(TagFixedLotSize, StrategyParams{})
	require.ErrorIs(t, err, ErrMissingParameter)

	_, err = NewStrategy(TagPeriodOrderQuantity, StrategyParams{PeriodsToCover: 2})
	require.ErrorIs(t, err, ErrMissingParameter)

	_, err = NewStrategy(TagPeriodOrderQuantity, StrategyParams{PeriodType: "HOURLY", PeriodsToCover: 2})
	require.ErrorIs(t, err, ErrUnknownPeriodType)

	_, err = NewStrategy(TagPeriodOrderQuantity, StrategyParams{PeriodType: PeriodDaily})
	require.ErrorIs(t, err, ErrMissingParameter)
}
