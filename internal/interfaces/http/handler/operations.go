package handler

import (
	"context"

	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/application/fulfillment"
	appmanufacturing "github.com/erp/lotledger/internal/application/manufacturing"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/manufacturing"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/gin-gonic/gin"
)

// Receiver books purchase receipts and opening balances
type Receiver interface {
	Receive(ctx context.Context, li trade.PurchaseOrderLineItem) (*appledger.AppendResult, error)
	RecordOpeningBalance(ctx context.Context, b ledger.OpeningBalance) (*appledger.AppendResult, error)
}

// Adjuster books audit adjustments
type Adjuster interface {
	Adjust(ctx context.Context, adj ledger.AuditAdjustment) (*appledger.AppendResult, error)
}

// Producer processes completed manufacturing orders
type Producer interface {
	Process(ctx context.Context, order manufacturing.ManufacturingOrder) (*appmanufacturing.Result, error)
}

// Shipper allocates sale order lines from lots
type Shipper interface {
	Allocate(ctx context.Context, li trade.SaleOrderLineItem) (*fulfillment.AllocationResult, error)
}

// OperationsHandler accepts the stock-moving documents: receipts, opening
// balances, adjustments, manufacturing orders and shipments
type OperationsHandler struct {
	BaseHandler
	receiving     Receiver
	audit         Adjuster
	manufacturing Producer
	fulfillment   Shipper
}

// NewOperationsHandler creates a new OperationsHandler
func NewOperationsHandler(receiving Receiver, audit Adjuster, manufacturing Producer, fulfillment Shipper) *OperationsHandler {
	return &OperationsHandler{
		receiving:     receiving,
		audit:         audit,
		manufacturing: manufacturing,
		fulfillment:   fulfillment,
	}
}

// Receive handles POST /receipts
func (h *OperationsHandler) Receive(c *gin.Context) {
	var req ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.receiving.Receive(c.Request.Context(), req.toDomain(actorOr(c, req.ReceivedBy)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Recorded(c, res.Duplicate, res)
}

// RecordOpeningBalance handles POST /opening-balances
func (h *OperationsHandler) RecordOpeningBalance(c *gin.Context) {
	var req OpeningBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.receiving.RecordOpeningBalance(c.Request.Context(), req.toDomain(actorOr(c, req.Actor)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Recorded(c, res.Duplicate, res)
}

// Adjust handles POST /adjustments
func (h *OperationsHandler) Adjust(c *gin.Context) {
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.audit.Adjust(c.Request.Context(), req.toDomain(actorOr(c, req.Author)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Recorded(c, res.Duplicate, res)
}

// ProcessManufacturingOrder handles POST /manufacturing-orders
func (h *OperationsHandler) ProcessManufacturingOrder(c *gin.Context) {
	var req ManufacturingOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.manufacturing.Process(c.Request.Context(), req.toDomain(actorOr(c, req.Actor)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Recorded(c, res.Duplicate, res)
}

// Ship handles POST /shipments
func (h *OperationsHandler) Ship(c *gin.Context) {
	var req ShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.fulfillment.Allocate(c.Request.Context(), req.toDomain(actorOr(c, req.ShippedBy)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Recorded(c, res.Duplicate, res)
}
