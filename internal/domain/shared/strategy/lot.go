package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Lot selection policy names
const (
	PolicyFIFO   = "fifo"
	PolicyFEFO   = "fefo"
	PolicyPinned = "pinned"
)

// LotCandidate is a lot offered to a selection strategy
type LotCandidate struct {
	LotID      string
	LotNumber  string
	Available  decimal.Decimal
	UnitCost   decimal.Decimal
	ExpiresAt  *time.Time
	ReceivedAt time.Time
	CreatedAt  time.Time
}

// LotPick is the quantity taken from one lot
type LotPick struct {
	LotID     string
	LotNumber string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

// LotSelectionContext describes what is being drawn
type LotSelectionContext struct {
	SkuCode   string
	Quantity  decimal.Decimal
	PinnedLot string    // Only meaningful for the pinned policy
	AsOf      time.Time // Reference time for expiry checks
}

// LotSelectionResult contains the picks and any unmet quantity
type LotSelectionResult struct {
	Picks        []LotPick
	TotalQty     decimal.Decimal
	ShortfallQty decimal.Decimal
	// AvailableQty is the total available across eligible lots
	AvailableQty decimal.Decimal
}

// Satisfied reports whether the full quantity was picked
func (r LotSelectionResult) Satisfied() bool {
	return !r.ShortfallQty.IsPositive()
}

// LotSelectionStrategy decides which lots a debit draws from
type LotSelectionStrategy interface {
	Strategy
	// Select picks quantity across candidates; it never picks more than a lot holds
	Select(ctx context.Context, selCtx LotSelectionContext, lots []LotCandidate) (LotSelectionResult, error)
	// ConsidersExpiry returns true if expired lots are excluded
	ConsidersExpiry() bool
}
