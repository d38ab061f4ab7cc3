package lot

import (
	"context"
	"testing"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(now time.Time) []strategy.LotCandidate {
	soon := now.Add(48 * time.Hour)
	later := now.Add(240 * time.Hour)
	return []strategy.LotCandidate{
		{LotID: "b", LotNumber: "B", Available: decimal.NewFromInt(5), UnitCost: decimal.NewFromInt(6), ReceivedAt: now.Add(-1 * time.Hour), ExpiresAt: &soon},
		{LotID: "a", LotNumber: "A", Available: decimal.NewFromInt(5), UnitCost: decimal.NewFromInt(4), ReceivedAt: now.Add(-2 * time.Hour), ExpiresAt: &later},
		{LotID: "z", LotNumber: "Z", Available: decimal.Zero, UnitCost: decimal.NewFromInt(1), ReceivedAt: now.Add(-3 * time.Hour)},
	}
}

func TestFIFOLotStrategy_Select(t *testing.T) {
	s := NewFIFOLotStrategy()
	ctx := context.Background()
	now := time.Now()

	t.Run("draws oldest lot first and skips empty lots", func(t *testing.T) {
		result, err := s.Select(ctx, strategy.LotSelectionContext{Quantity: decimal.NewFromInt(7)}, candidates(now))
		require.NoError(t, err)

		require.Len(t, result.Picks, 2)
		assert.Equal(t, "A", result.Picks[0].LotNumber)
		assert.True(t, result.Picks[0].Quantity.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, "B", result.Picks[1].LotNumber)
		assert.True(t, result.Picks[1].Quantity.Equal(decimal.NewFromInt(2)))
		assert.True(t, result.Satisfied())
		assert.True(t, result.AvailableQty.Equal(decimal.NewFromInt(10)))
	})

	t.Run("reports shortfall when lots run out", func(t *testing.T) {
		result, err := s.Select(ctx, strategy.LotSelectionContext{Quantity: decimal.NewFromInt(11)}, candidates(now))
		require.NoError(t, err)

		assert.False(t, result.Satisfied())
		assert.True(t, result.ShortfallQty.Equal(decimal.NewFromInt(1)))
		assert.True(t, result.TotalQty.Equal(decimal.NewFromInt(10)))
	})

	t.Run("ties on received time fall back to lot number", func(t *testing.T) {
		lots := []strategy.LotCandidate{
			{LotNumber: "L2", Available: decimal.NewFromInt(1), ReceivedAt: now, CreatedAt: now},
			{LotNumber: "L1", Available: decimal.NewFromInt(1), ReceivedAt: now, CreatedAt: now},
		}
		result, err := s.Select(ctx, strategy.LotSelectionContext{Quantity: decimal.NewFromInt(1)}, lots)
		require.NoError(t, err)
		require.Len(t, result.Picks, 1)
		assert.Equal(t, "L1", result.Picks[0].LotNumber)
	})

	assert.False(t, s.ConsidersExpiry())
	assert.Equal(t, strategy.PolicyFIFO, s.Name())
}

func TestFEFOLotStrategy_Select(t *testing.T) {
	s := NewFEFOLotStrategy()
	ctx := context.Background()
	now := time.Now()

	t.Run("draws earliest expiry first", func(t *testing.T) {
		result, err := s.Select(ctx, strategy.LotSelectionContext{Quantity: decimal.NewFromInt(7), AsOf: now}, candidates(now))
		require.NoError(t, err)

		require.Len(t, result.Picks, 2)
		assert.Equal(t, "B", result.Picks[0].LotNumber)
		assert.Equal(t, "A", result.Picks[1].LotNumber)
	})

	t.Run("skips expired lots", func(t *testing.T) {
		result, err := s.Select(ctx, strategy.LotSelectionContext{Quantity: decimal.NewFromInt(7), AsOf: now.Add(72 * time.Hour)}, candidates(now))
		require.NoError(t, err)

		require.Len(t, result.Picks, 1)
		assert.Equal(t, "A", result.Picks[0].LotNumber)
		assert.True(t, result.ShortfallQty.Equal(decimal.NewFromInt(2)))
	})

	assert.True(t, s.ConsidersExpiry())
}

func TestPinnedLotStrategy_Select(t *testing.T) {
	s := NewPinnedLotStrategy()
	ctx := context.Background()
	now := time.Now()

	t.Run("draws only from the pinned lot", func(t *testing.T) {
		result, err := s.Select(ctx, strategy.LotSelectionContext{Quantity: decimal.NewFromInt(7), PinnedLot: "B"}, candidates(now))
		require.NoError(t, err)

		require.Len(t, result.Picks, 1)
		assert.Equal(t, "B", result.Picks[0].LotNumber)
		assert.True(t, result.ShortfallQty.Equal(decimal.NewFromInt(2)))
		assert.True(t, result.AvailableQty.Equal(decimal.NewFromInt(5)))
	})

	t.Run("unknown pinned lot yields full shortfall", func(t *testing.T) {
		result, err := s.Select(ctx, strategy.LotSelectionContext{Quantity: decimal.NewFromInt(1), PinnedLot: "nope"}, candidates(now))
		require.NoError(t, err)
		assert.Empty(t, result.Picks)
		assert.False(t, result.Satisfied())
	})

	t.Run("missing lot number is a validation error", func(t *testing.T) {
		_, err := s.Select(ctx, strategy.LotSelectionContext{Quantity: decimal.NewFromInt(1)}, candidates(now))
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})
}
