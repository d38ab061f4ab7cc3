package trade

import (
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PurchaseOrderLineItem is one received line of a purchase order
type PurchaseOrderLineItem struct {
	PurchaseOrderID string          `json:"purchase_order_id"`
	LineItemID      string          `json:"line_item_id"`
	SkuCode         string          `json:"sku"`
	LotNumber       string          `json:"lot_number"`
	QtyReceived     decimal.Decimal `json:"qty_received"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	ReceivedBy      string          `json:"received_by"`
	ReceivedAt      time.Time       `json:"received_at"`
}

// Validate checks that the line can be booked as a receipt
func (li PurchaseOrderLineItem) Validate() error {
	if strings.TrimSpace(li.PurchaseOrderID) == "" || strings.TrimSpace(li.LineItemID) == "" {
		return shared.NewValidationError("purchase order id and line item id are required")
	}
	if strings.TrimSpace(li.SkuCode) == "" || strings.TrimSpace(li.LotNumber) == "" {
		return shared.NewValidationError("received line must name a sku and lot")
	}
	if !li.QtyReceived.IsPositive() {
		return shared.NewValidationError("received quantity must be positive")
	}
	if li.UnitCost.IsNegative() {
		return shared.NewValidationError("unit cost cannot be negative")
	}
	return nil
}

// IdempotencyKey returns "poId:lineItemId"
func (li PurchaseOrderLineItem) IdempotencyKey() string {
	return li.PurchaseOrderID + ":" + li.LineItemID
}
