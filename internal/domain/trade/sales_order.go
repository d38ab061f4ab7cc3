package trade

import (
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleOrderLineItem is one line of a sale order to be shipped from stock
type SaleOrderLineItem struct {
	SaleOrderID string          `json:"sale_order_id"`
	LineItemID  string          `json:"line_item_id"`
	SkuCode     string          `json:"sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	PinnedLot   string          `json:"pinned_lot,omitempty"` // Ship only from this lot when set
	Policy      string          `json:"policy,omitempty"`     // Lot selection policy, fifo when empty
	ShippedBy   string          `json:"shipped_by"`
	ShippedAt   time.Time       `json:"shipped_at"`
}

// Validate checks that the line can be allocated
func (li SaleOrderLineItem) Validate() error {
	if strings.TrimSpace(li.SaleOrderID) == "" || strings.TrimSpace(li.LineItemID) == "" {
		return shared.NewValidationError("sale order id and line item id are required")
	}
	if strings.TrimSpace(li.SkuCode) == "" {
		return shared.NewValidationError("sale order line must name a sku")
	}
	if !li.Quantity.IsPositive() {
		return shared.NewValidationError("ship quantity must be positive")
	}
	return nil
}

// OperationKey returns "saleOrderId:lineItemId"; per-lot events extend it with the lot id
func (li SaleOrderLineItem) OperationKey() string {
	return li.SaleOrderID + ":" + li.LineItemID
}
