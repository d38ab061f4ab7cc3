package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordEvents applies deltas to lot and keeps the events Apply would commit
func recordEvents(t *testing.T, lot *Lot, deltas []decimal.Decimal, costs []decimal.Decimal) []LedgerEvent {
	t.Helper()
	events := make([]LedgerEvent, 0, len(deltas))
	for i, d := range deltas {
		cost, err := lot.Apply(d, costs[i])
		require.NoError(t, err)
		events = append(events, LedgerEvent{
			LotID:         lot.ID,
			Sequence:      lot.EventCount,
			SkuCode:       lot.SkuCode,
			LotNumber:     lot.LotNumber,
			Delta:         d,
			UnitCost:      cost,
			QuantityAfter: lot.Quantity,
			CostAfter:     lot.UnitCost,
			OccurredAt:    time.Now(),
		})
	}
	return events
}

func TestFold_MatchesCachedState(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	lot := newTestLot(t)

	var deltas, costs []decimal.Decimal
	onHand := int64(0)
	for i := 0; i < 200; i++ {
		if onHand > 0 && rng.Intn(2) == 0 {
			d := rng.Int63n(onHand) + 1
			deltas = append(deltas, decimal.NewFromInt(-d))
			costs = append(costs, decimal.Zero)
			onHand -= d
			continue
		}
		d := rng.Int63n(20) + 1
		deltas = append(deltas, decimal.NewFromInt(d))
		costs = append(costs, decimal.NewFromInt(rng.Int63n(1000)).Div(decimal.NewFromInt(100)))
		onHand += d
	}

	events := recordEvents(t, lot, deltas, costs)

	// Shuffle to show Fold orders by sequence
	rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })

	folded, err := Fold(events)
	require.NoError(t, err)
	assert.True(t, folded.Quantity.Equal(lot.Quantity))
	assert.True(t, folded.Quantity.Equal(decimal.NewFromInt(onHand)))
	assert.True(t, folded.UnitCost.Equal(lot.UnitCost))
	assert.Equal(t, lot.EventCount, folded.EventCount)
}

func TestFold_RejectsNegativeHistory(t *testing.T) {
	events := []LedgerEvent{
		{Sequence: 1, SkuCode: "S", LotNumber: "L", Delta: decimal.NewFromInt(2), UnitCost: decimal.NewFromInt(1)},
		{Sequence: 2, SkuCode: "S", LotNumber: "L", Delta: decimal.NewFromInt(-3)},
	}
	_, err := Fold(events)
	assert.ErrorIs(t, err, shared.ErrNegativeQuantity)
}

func TestVerifyAndRepair(t *testing.T) {
	lot := newTestLot(t)
	events := recordEvents(t, lot,
		[]decimal.Decimal{decimal.NewFromInt(10), decimal.NewFromInt(10), decimal.NewFromInt(-4)},
		[]decimal.Decimal{decimal.NewFromInt(4), decimal.NewFromInt(6), decimal.Zero},
	)

	report, err := Verify(lot, events)
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	lot.Quantity = decimal.NewFromInt(100)
	report, err = Verify(lot, events)
	require.NoError(t, err)
	assert.False(t, report.Consistent)

	report.Repair(lot)
	assert.True(t, report.Repaired)
	assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(16)))
	assert.True(t, lot.UnitCost.Equal(decimal.NewFromInt(5)))
}
