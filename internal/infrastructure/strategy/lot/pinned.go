package lot

import (
	"context"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/shared/strategy"
)

// PinnedLotStrategy draws only from the lot named in the selection context
type PinnedLotStrategy struct {
	strategy.BaseStrategy
}

// NewPinnedLotStrategy creates a new pinned lot strategy
func NewPinnedLotStrategy() *PinnedLotStrategy {
	return &PinnedLotStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			strategy.PolicyPinned,
			strategy.StrategyTypeLotSelection,
			"Pinned - draws only from an explicitly named lot",
		),
	}
}

// Select picks from the pinned lot; the shortfall covers anything it cannot hold
func (s *PinnedLotStrategy) Select(
	ctx context.Context,
	selCtx strategy.LotSelectionContext,
	lots []strategy.LotCandidate,
) (strategy.LotSelectionResult, error) {
	if selCtx.PinnedLot == "" {
		return strategy.LotSelectionResult{}, shared.NewValidationError("pinned lot selection requires a lot number")
	}

	pinned := make([]strategy.LotCandidate, 0, 1)
	for _, l := range lots {
		if l.LotNumber == selCtx.PinnedLot && l.Available.IsPositive() {
			pinned = append(pinned, l)
			break
		}
	}
	return selectFromLots(pinned, selCtx.Quantity), nil
}

// ConsidersExpiry returns false; a pinned lot is taken as requested
func (s *PinnedLotStrategy) ConsidersExpiry() bool {
	return false
}
