package manufacturing

import (
	"context"
	"strconv"
	"testing"
	"time"

	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/manufacturing"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/lock"
	"github.com/erp/lotledger/internal/infrastructure/persistence/memory"
	infrastrategy "github.com/erp/lotledger/internal/infrastructure/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var day = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *appledger.Ledger) {
	t.Helper()
	ctx := context.Background()
	l := appledger.NewLedger(memory.NewLedgerStore(), lock.NewLocalManager(time.Second, zap.NewNop()), zap.NewNop())
	seed := []struct {
		sku, lot string
		qty      int64
		cost     int64
		at       time.Time
	}{
		{"FLOUR", "F1", 10, 2, day},
		{"FLOUR", "F2", 5, 3, day.Add(time.Hour)},
		{"SUGAR", "S1", 4, 1, day},
	}
	for _, s := range seed {
		_, err := l.AppendEvent(ctx, ledger.NewEvent{
			Lot:            ledger.NewLotKey(s.sku, s.lot),
			Delta:          decimal.NewFromInt(s.qty),
			UnitCost:       decimal.NewFromInt(s.cost),
			SourceType:     ledger.SourceTypeReceiving,
			SourceID:       "PO-1",
			IdempotencyKey: "PO-1:" + s.lot,
			OccurredAt:     s.at,
		})
		require.NoError(t, err)
	}
	return NewService(l, infrastrategy.NewRegistryWithDefaults(), zap.NewNop()), l
}

func order(inputs ...manufacturing.BOMInput) manufacturing.ManufacturingOrder {
	return manufacturing.ManufacturingOrder{
		ID:     "MO-1",
		Inputs: inputs,
		Output: manufacturing.Output{
			SkuCode:     "BREAD",
			LotNumber:   "B1",
			QtyProduced: decimal.NewFromInt(10),
			LaborCost:   decimal.NewFromInt(20),
		},
		Actor:       "baker",
		CompletedAt: day.Add(24 * time.Hour),
	}
}

func input(sku string, qty int64) manufacturing.BOMInput {
	return manufacturing.BOMInput{SkuCode: sku, QtyRequired: decimal.NewFromInt(qty)}
}

func qty(t *testing.T, l *appledger.Ledger, sku, lot string) decimal.Decimal {
	t.Helper()
	state, err := l.GetLotState(context.Background(), sku, lot)
	require.NoError(t, err)
	return state.Quantity
}

func TestService_Process_RollUpCost(t *testing.T) {
	ctx := context.Background()
	svc, l := setup(t)

	res, err := svc.Process(ctx, order(input("FLOUR", 15)))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	require.Len(t, res.Consumptions, 2)
	assert.Equal(t, "F1", res.Consumptions[0].LotNumber)
	assert.Equal(t, 0, res.Consumptions[0].InputIndex)
	assert.True(t, res.ConsumedValue.Equal(decimal.NewFromInt(35)))
	assert.True(t, res.OutputUnitCost.Equal(decimal.RequireFromString("5.5")), "got %s", res.OutputUnitCost)
	assert.True(t, res.Output.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, res.Output.UnitCost.Equal(decimal.RequireFromString("5.5")))

	assert.True(t, qty(t, l, "FLOUR", "F1").IsZero())
	assert.True(t, qty(t, l, "FLOUR", "F2").IsZero())

	events, err := l.Replay(ctx, "BREAD", "B1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "MO-1:output", events[0].IdempotencyKey)
	assert.Equal(t, ledger.SourceTypeManufacturingOutput, events[0].SourceType)

	t.Run("replay returns the committed result", func(t *testing.T) {
		again, err := svc.Process(ctx, order(input("FLOUR", 15)))
		require.NoError(t, err)
		assert.True(t, again.Duplicate)
		assert.True(t, again.OutputUnitCost.Equal(res.OutputUnitCost))
		assert.Len(t, again.Consumptions, 2)
		assert.True(t, qty(t, l, "BREAD", "B1").Equal(decimal.NewFromInt(10)))
	})
}

func TestService_Process_UnmetInputFailsWholeOrder(t *testing.T) {
	ctx := context.Background()
	svc, l := setup(t)

	_, err := svc.Process(ctx, order(input("FLOUR", 3), input("SUGAR", 5)))
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.CodeInsufficientInventory, de.Code)
	assert.Equal(t, "SUGAR", de.Details["sku"])

	assert.True(t, qty(t, l, "FLOUR", "F1").Equal(decimal.NewFromInt(10)))
	_, err = l.GetLotState(ctx, "BREAD", "B1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_Process_InputsShareLots(t *testing.T) {
	ctx := context.Background()
	svc, l := setup(t)

	res, err := svc.Process(ctx, order(input("FLOUR", 8), input("FLOUR", 4)))
	require.NoError(t, err)
	require.Len(t, res.Consumptions, 3)
	assert.Equal(t, 1, res.Consumptions[1].InputIndex)
	assert.Equal(t, "F1", res.Consumptions[1].LotNumber)
	assert.True(t, res.Consumptions[1].Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "F2", res.Consumptions[2].LotNumber)

	assert.True(t, qty(t, l, "FLOUR", "F1").IsZero())
	assert.True(t, qty(t, l, "FLOUR", "F2").Equal(decimal.NewFromInt(3)))
}

func TestService_Process_PinnedInput(t *testing.T) {
	ctx := context.Background()
	svc, l := setup(t)

	pinned := input("FLOUR", 5)
	pinned.PinnedLot = "F2"
	res, err := svc.Process(ctx, order(pinned))
	require.NoError(t, err)
	require.Len(t, res.Consumptions, 1)
	assert.Equal(t, "F2", res.Consumptions[0].LotNumber)
	assert.True(t, qty(t, l, "FLOUR", "F1").Equal(decimal.NewFromInt(10)))
	assert.True(t, res.OutputUnitCost.Equal(decimal.RequireFromString("3.5")))
}

func TestService_Process_Validation(t *testing.T) {
	svc, _ := setup(t)
	o := order(input("FLOUR", 1))
	o.Output.QtyProduced = decimal.Zero
	_, err := svc.Process(context.Background(), o)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	o = order(manufacturing.BOMInput{SkuCode: "FLOUR", QtyRequired: decimal.NewFromInt(1), LotSelectionPolicy: "random"})
	_, err = svc.Process(context.Background(), o)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

func TestInputIndex(t *testing.T) {
	assert.Equal(t, 2, inputIndex("MO-1", "MO-1:2:abc"))
	assert.Equal(t, -1, inputIndex("MO-1", "MO-1:output"))
}

func TestService_Process_NeverDrawsFromOutputLot(t *testing.T) {
	ctx := context.Background()
	svc, l := setup(t)
	for i, s := range []struct {
		lot string
		qty int64
		at  time.Time
	}{
		{"B1", 6, day},
		{"B0", 3, day.Add(time.Hour)},
	} {
		_, err := l.AppendEvent(ctx, ledger.NewEvent{
			Lot:            ledger.NewLotKey("BREAD", s.lot),
			Delta:          decimal.NewFromInt(s.qty),
			UnitCost:       decimal.NewFromInt(4),
			SourceType:     ledger.SourceTypeReceiving,
			SourceID:       "PO-2",
			IdempotencyKey: ledger.JoinKey("PO-2", strconv.Itoa(i)),
			OccurredAt:     s.at,
		})
		require.NoError(t, err)
	}

	t.Run("fifo skips the older output lot", func(t *testing.T) {
		o := order(input("BREAD", 2))
		res, err := svc.Process(ctx, o)
		require.NoError(t, err)
		require.Len(t, res.Consumptions, 1)
		assert.Equal(t, "B0", res.Consumptions[0].LotNumber)
		assert.True(t, qty(t, l, "BREAD", "B0").Equal(decimal.NewFromInt(1)))
		assert.True(t, qty(t, l, "BREAD", "B1").Equal(decimal.NewFromInt(16)))
	})

	t.Run("output lot stock does not cover an input", func(t *testing.T) {
		o := order(input("BREAD", 2))
		o.ID = "MO-2"
		_, err := svc.Process(ctx, o)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientInventory), "got %v", err)
		assert.True(t, qty(t, l, "BREAD", "B1").Equal(decimal.NewFromInt(16)))
	})

	t.Run("pinning the output lot is rejected", func(t *testing.T) {
		in := input("BREAD", 1)
		in.PinnedLot = "B1"
		o := order(in)
		o.ID = "MO-3"
		_, err := svc.Process(ctx, o)
		assert.True(t, shared.IsCode(err, shared.CodeValidation), "got %v", err)
	})
}
