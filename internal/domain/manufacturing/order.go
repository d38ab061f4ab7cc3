package manufacturing

import (
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BOMInput is one bill-of-materials line consumed by an order
type BOMInput struct {
	SkuCode            string          `json:"sku"`
	LotSelectionPolicy string          `json:"lot_selection_policy,omitempty"` // fifo, fefo or pinned
	PinnedLot          string          `json:"pinned_lot,omitempty"`
	QtyRequired        decimal.Decimal `json:"qty_required"`
}

// Output is the finished lot produced by an order
type Output struct {
	SkuCode     string          `json:"sku"`
	LotNumber   string          `json:"lot_number"`
	QtyProduced decimal.Decimal `json:"qty_produced"`
	LaborCost   decimal.Decimal `json:"labor_cost"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

// ManufacturingOrder converts BOM inputs into one output lot
type ManufacturingOrder struct {
	ID          string     `json:"id"`
	Inputs      []BOMInput `json:"inputs"`
	Output      Output     `json:"output"`
	Actor       string     `json:"actor"`
	CompletedAt time.Time  `json:"completed_at"`
}

// Validate checks the order before any stock is touched
func (o ManufacturingOrder) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return shared.NewValidationError("manufacturing order id is required")
	}
	if len(o.Inputs) == 0 {
		return shared.NewValidationError("manufacturing order needs at least one input")
	}
	for i, in := range o.Inputs {
		if strings.TrimSpace(in.SkuCode) == "" {
			return shared.NewValidationError("input %d: sku is required", i)
		}
		if !in.QtyRequired.IsPositive() {
			return shared.NewValidationError("input %d: required quantity must be positive", i)
		}
		if strings.EqualFold(in.LotSelectionPolicy, "pinned") && strings.TrimSpace(in.PinnedLot) == "" {
			return shared.NewValidationError("input %d: pinned policy needs a lot number", i)
		}
	}
	if strings.TrimSpace(o.Output.SkuCode) == "" || strings.TrimSpace(o.Output.LotNumber) == "" {
		return shared.NewValidationError("output must name a sku and lot")
	}
	if !o.Output.QtyProduced.IsPositive() {
		return shared.NewValidationError("produced quantity must be positive")
	}
	if o.Output.LaborCost.IsNegative() {
		return shared.NewValidationError("labor cost cannot be negative")
	}
	return nil
}

// Policy returns the effective selection policy for the input
func (in BOMInput) Policy() string {
	if p := strings.ToLower(strings.TrimSpace(in.LotSelectionPolicy)); p != "" {
		return p
	}
	if in.PinnedLot != "" {
		return "pinned"
	}
	return "fifo"
}

// RollUpCost returns (consumed value + labor) / produced quantity
func RollUpCost(consumedValue, laborCost, qtyProduced decimal.Decimal) decimal.Decimal {
	if !qtyProduced.IsPositive() {
		return decimal.Zero
	}
	return consumedValue.Add(laborCost).Div(qtyProduced).Round(4)
}
