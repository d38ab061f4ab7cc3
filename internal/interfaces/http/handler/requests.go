package handler

import (
	"time"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/manufacturing"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ReceiptRequest is one received purchase order line
type ReceiptRequest struct {
	PurchaseOrderID string          `json:"purchase_order_id" binding:"required,max=128"`
	LineItemID      string          `json:"line_item_id" binding:"required,max=128"`
	SkuCode         string          `json:"sku" binding:"required,max=64"`
	LotNumber       string          `json:"lot_number" binding:"required,max=64"`
	QtyReceived     decimal.Decimal `json:"qty_received"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	ExpiresAt       *time.Time      `json:"expires_at"`
	ReceivedBy      string          `json:"received_by" binding:"max=128"`
	ReceivedAt      time.Time       `json:"received_at"`
}

func (r ReceiptRequest) toDomain(actor string) trade.PurchaseOrderLineItem {
	return trade.PurchaseOrderLineItem{
		PurchaseOrderID: r.PurchaseOrderID,
		LineItemID:      r.LineItemID,
		SkuCode:         r.SkuCode,
		LotNumber:       r.LotNumber,
		QtyReceived:     r.QtyReceived,
		UnitCost:        r.UnitCost,
		ExpiresAt:       r.ExpiresAt,
		ReceivedBy:      actor,
		ReceivedAt:      r.ReceivedAt,
	}
}

// OpeningBalanceRequest seeds a lot with a starting quantity and cost
type OpeningBalanceRequest struct {
	IdempotencyKey string          `json:"idempotency_key" binding:"max=255"`
	SkuCode        string          `json:"sku" binding:"required,max=64"`
	LotNumber      string          `json:"lot_number" binding:"required,max=64"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	ExpiresAt      *time.Time      `json:"expires_at"`
	Actor          string          `json:"actor" binding:"max=128"`
	AsOf           time.Time       `json:"as_of"`
}

func (r OpeningBalanceRequest) toDomain(actor string) ledger.OpeningBalance {
	return ledger.OpeningBalance{
		IdempotencyKey: r.IdempotencyKey,
		SkuCode:        r.SkuCode,
		LotNumber:      r.LotNumber,
		Quantity:       r.Quantity,
		UnitCost:       r.UnitCost,
		ExpiresAt:      r.ExpiresAt,
		Actor:          actor,
		AsOf:           r.AsOf,
	}
}

// AdjustmentRequest is a signed count correction on one lot
type AdjustmentRequest struct {
	AdjustmentID string          `json:"adjustment_id" binding:"required,max=128"`
	SkuCode      string          `json:"sku" binding:"required,max=64"`
	LotNumber    string          `json:"lot_number" binding:"required,max=64"`
	Delta        decimal.Decimal `json:"delta"`
	Reason       string          `json:"reason" binding:"required,max=255"`
	Author       string          `json:"author" binding:"max=128"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

func (r AdjustmentRequest) toDomain(author string) ledger.AuditAdjustment {
	return ledger.AuditAdjustment{
		AdjustmentID: r.AdjustmentID,
		SkuCode:      r.SkuCode,
		LotNumber:    r.LotNumber,
		Delta:        r.Delta,
		Reason:       r.Reason,
		Author:       author,
		OccurredAt:   r.OccurredAt,
	}
}

// BOMInputRequest is one input line of a manufacturing order
type BOMInputRequest struct {
	SkuCode            string          `json:"sku" binding:"required,max=64"`
	LotSelectionPolicy string          `json:"lot_selection_policy" binding:"omitempty,oneof=fifo fefo pinned"`
	PinnedLot          string          `json:"pinned_lot" binding:"max=64"`
	QtyRequired        decimal.Decimal `json:"qty_required"`
}

// OutputRequest is the finished lot of a manufacturing order
type OutputRequest struct {
	SkuCode     string          `json:"sku" binding:"required,max=64"`
	LotNumber   string          `json:"lot_number" binding:"required,max=64"`
	QtyProduced decimal.Decimal `json:"qty_produced"`
	LaborCost   decimal.Decimal `json:"labor_cost"`
	ExpiresAt   *time.Time      `json:"expires_at"`
}

// ManufacturingOrderRequest is a completed manufacturing order
type ManufacturingOrderRequest struct {
	ID          string            `json:"id" binding:"required,max=128"`
	Inputs      []BOMInputRequest `json:"inputs" binding:"required,min=1,dive"`
	Output      OutputRequest     `json:"output" binding:"required"`
	Actor       string            `json:"actor" binding:"max=128"`
	CompletedAt time.Time         `json:"completed_at"`
}

func (r ManufacturingOrderRequest) toDomain(actor string) manufacturing.ManufacturingOrder {
	inputs := make([]manufacturing.BOMInput, 0, len(r.Inputs))
	for _, in := range r.Inputs {
		inputs = append(inputs, manufacturing.BOMInput{
			SkuCode:            in.SkuCode,
			LotSelectionPolicy: in.LotSelectionPolicy,
			PinnedLot:          in.PinnedLot,
			QtyRequired:        in.QtyRequired,
		})
	}
	return manufacturing.ManufacturingOrder{
		ID:     r.ID,
		Inputs: inputs,
		Output: manufacturing.Output{
			SkuCode:     r.Output.SkuCode,
			LotNumber:   r.Output.LotNumber,
			QtyProduced: r.Output.QtyProduced,
			LaborCost:   r.Output.LaborCost,
			ExpiresAt:   r.Output.ExpiresAt,
		},
		Actor:       actor,
		CompletedAt: r.CompletedAt,
	}
}

// ShipmentRequest is one sale order line to ship from stock
type ShipmentRequest struct {
	SaleOrderID string          `json:"sale_order_id" binding:"required,max=128"`
	LineItemID  string          `json:"line_item_id" binding:"required,max=128"`
	SkuCode     string          `json:"sku" binding:"required,max=64"`
	Quantity    decimal.Decimal `json:"quantity"`
	PinnedLot   string          `json:"pinned_lot" binding:"max=64"`
	Policy      string          `json:"policy" binding:"omitempty,oneof=fifo fefo"`
	ShippedBy   string          `json:"shipped_by" binding:"max=128"`
	ShippedAt   time.Time       `json:"shipped_at"`
}

func (r ShipmentRequest) toDomain(actor string) trade.SaleOrderLineItem {
	return trade.SaleOrderLineItem{
		SaleOrderID: r.SaleOrderID,
		LineItemID:  r.LineItemID,
		SkuCode:     r.SkuCode,
		Quantity:    r.Quantity,
		PinnedLot:   r.PinnedLot,
		Policy:      r.Policy,
		ShippedBy:   actor,
		ShippedAt:   r.ShippedAt,
	}
}
