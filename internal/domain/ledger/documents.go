package ledger

import (
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AuditAdjustment is a signed correction recorded against one lot after a count
type AuditAdjustment struct {
	AdjustmentID string          `json:"adjustment_id"`
	SkuCode      string          `json:"sku"`
	LotNumber    string          `json:"lot_number"`
	Delta        decimal.Decimal `json:"delta"`
	Reason       string          `json:"reason"`
	Author       string          `json:"author"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// Validate requires an id, a lot, a non-zero delta, a reason and an author
func (a AuditAdjustment) Validate() error {
	if strings.TrimSpace(a.AdjustmentID) == "" {
		return shared.NewValidationError("adjustment id is required")
	}
	if strings.TrimSpace(a.SkuCode) == "" || strings.TrimSpace(a.LotNumber) == "" {
		return shared.NewValidationError("adjustment must name a sku and lot")
	}
	if a.Delta.IsZero() {
		return shared.NewValidationError("adjustment delta must not be zero")
	}
	if strings.TrimSpace(a.Reason) == "" {
		return shared.NewValidationError("adjustment reason is required")
	}
	if strings.TrimSpace(a.Author) == "" {
		return shared.NewValidationError("adjustment author is required")
	}
	return nil
}

// Lot returns the adjusted lot's key
func (a AuditAdjustment) Lot() LotKey {
	return NewLotKey(a.SkuCode, a.LotNumber)
}

// OpeningBalance seeds a lot with an imported quantity and cost
type OpeningBalance struct {
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	SkuCode        string          `json:"sku"`
	LotNumber      string          `json:"lot_number"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	Actor          string          `json:"actor"`
	AsOf           time.Time       `json:"as_of"`
}

// Validate requires a lot, a positive quantity and a non-negative cost
func (b OpeningBalance) Validate() error {
	if strings.TrimSpace(b.SkuCode) == "" || strings.TrimSpace(b.LotNumber) == "" {
		return shared.NewValidationError("opening balance must name a sku and lot")
	}
	if !b.Quantity.IsPositive() {
		return shared.NewValidationError("opening balance quantity must be positive")
	}
	if b.UnitCost.IsNegative() {
		return shared.NewValidationError("opening balance unit cost cannot be negative")
	}
	return nil
}

// Lot returns the seeded lot's key
func (b OpeningBalance) Lot() LotKey {
	return NewLotKey(b.SkuCode, b.LotNumber)
}

// Key returns the supplied idempotency key or one derived from the lot
func (b OpeningBalance) Key() string {
	if k := strings.TrimSpace(b.IdempotencyKey); k != "" {
		return k
	}
	return JoinKey("opening", b.Lot().SkuCode, b.Lot().LotNumber)
}
