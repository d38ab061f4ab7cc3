package lot

import (
	"context"
	"sort"
	"time"

	"github.com/erp/lotledger/internal/domain/shared/strategy"
)

// FEFOLotStrategy implements First Expired First Out lot selection.
// Lots with the earliest expiry are drawn first; expired lots are skipped.
type FEFOLotStrategy struct {
	strategy.BaseStrategy
}

// NewFEFOLotStrategy creates a new FEFO lot strategy
func NewFEFOLotStrategy() *FEFOLotStrategy {
	return &FEFOLotStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			strategy.PolicyFEFO,
			strategy.StrategyTypeLotSelection,
			"First Expired First Out - draws from the earliest expiring lot first",
		),
	}
}

// Select picks quantity in expiry order
func (s *FEFOLotStrategy) Select(
	ctx context.Context,
	selCtx strategy.LotSelectionContext,
	lots []strategy.LotCandidate,
) (strategy.LotSelectionResult, error) {
	filtered := filterAvailableLots(lots)
	filtered = filterNonExpiredLots(filtered, selCtx.AsOf)

	// FIFO first so lots sharing an expiry (or lacking one) keep received order
	SortFIFO(filtered)
	sort.SliceStable(filtered, func(i, j int) bool {
		iExpiry := filtered[i].ExpiresAt
		jExpiry := filtered[j].ExpiresAt
		// Lots without expiry go last
		if iExpiry == nil {
			return false
		}
		if jExpiry == nil {
			return true
		}
		return iExpiry.Before(*jExpiry)
	})

	return selectFromLots(filtered, selCtx.Quantity), nil
}

// ConsidersExpiry returns true as FEFO considers expiry dates
func (s *FEFOLotStrategy) ConsidersExpiry() bool {
	return true
}

// filterNonExpiredLots filters out lots that expired before asOf
func filterNonExpiredLots(lots []strategy.LotCandidate, asOf time.Time) []strategy.LotCandidate {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	filtered := make([]strategy.LotCandidate, 0, len(lots))
	for _, l := range lots {
		if l.ExpiresAt == nil || l.ExpiresAt.After(asOf) {
			filtered = append(filtered, l)
		}
	}
	return filtered
}
