package lot

import (
	"context"
	"sort"

	"github.com/erp/lotledger/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// FIFOLotStrategy implements First In First Out lot selection.
// Lots are drawn in the order they were received.
type FIFOLotStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOLotStrategy creates a new FIFO lot strategy
func NewFIFOLotStrategy() *FIFOLotStrategy {
	return &FIFOLotStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			strategy.PolicyFIFO,
			strategy.StrategyTypeLotSelection,
			"First In First Out - draws from the earliest received lot first",
		),
	}
}

// Select picks quantity in received order
func (s *FIFOLotStrategy) Select(
	ctx context.Context,
	selCtx strategy.LotSelectionContext,
	lots []strategy.LotCandidate,
) (strategy.LotSelectionResult, error) {
	filtered := filterAvailableLots(lots)
	SortFIFO(filtered)
	return selectFromLots(filtered, selCtx.Quantity), nil
}

// ConsidersExpiry returns false as FIFO ignores expiry dates
func (s *FIFOLotStrategy) ConsidersExpiry() bool {
	return false
}

// SortFIFO orders lots by received time, then creation time, then lot number
func SortFIFO(lots []strategy.LotCandidate) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].ReceivedAt.Equal(lots[j].ReceivedAt) {
			return lots[i].ReceivedAt.Before(lots[j].ReceivedAt)
		}
		if !lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].CreatedAt.Before(lots[j].CreatedAt)
		}
		return lots[i].LotNumber < lots[j].LotNumber
	})
}

// filterAvailableLots drops lots with nothing on hand
func filterAvailableLots(lots []strategy.LotCandidate) []strategy.LotCandidate {
	filtered := make([]strategy.LotCandidate, 0, len(lots))
	for _, l := range lots {
		if l.Available.IsPositive() {
			filtered = append(filtered, l)
		}
	}
	return filtered
}

// selectFromLots draws quantity greedily from already sorted lots
func selectFromLots(lots []strategy.LotCandidate, quantity decimal.Decimal) strategy.LotSelectionResult {
	remainingQty := quantity
	picks := make([]strategy.LotPick, 0)
	totalQty := decimal.Zero
	availableQty := decimal.Zero

	for _, l := range lots {
		availableQty = availableQty.Add(l.Available)
		if !remainingQty.IsPositive() {
			continue
		}

		takeQty := decimal.Min(remainingQty, l.Available)
		picks = append(picks, strategy.LotPick{
			LotID:     l.LotID,
			LotNumber: l.LotNumber,
			Quantity:  takeQty,
			UnitCost:  l.UnitCost,
		})

		remainingQty = remainingQty.Sub(takeQty)
		totalQty = totalQty.Add(takeQty)
	}

	if remainingQty.IsNegative() {
		remainingQty = decimal.Zero
	}

	return strategy.LotSelectionResult{
		Picks:        picks,
		TotalQty:     totalQty,
		ShortfallQty: remainingQty,
		AvailableQty: availableQty,
	}
}
