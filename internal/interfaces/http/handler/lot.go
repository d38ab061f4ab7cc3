package handler

import (
	"context"

	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/gin-gonic/gin"
)

// LotReader answers lot queries from the ledger
type LotReader interface {
	GetLotState(ctx context.Context, sku, lotNumber string) (*ledger.LotState, error)
	ListLots(ctx context.Context, sku string) ([]ledger.LotState, error)
	Replay(ctx context.Context, sku, lotNumber string) ([]ledger.LedgerEvent, error)
	Verify(ctx context.Context, sku, lotNumber string) (*ledger.FoldReport, error)
	Reconcile(ctx context.Context, sku string) ([]ledger.FoldReport, error)
	SkuTotals(ctx context.Context, sku string) (*appledger.SkuTotals, error)
}

// LotHandler exposes lot state, history and fold verification
type LotHandler struct {
	BaseHandler
	ledger LotReader
}

// NewLotHandler creates a new LotHandler
func NewLotHandler(l LotReader) *LotHandler {
	return &LotHandler{ledger: l}
}

// ListLots handles GET /skus/:sku/lots
func (h *LotHandler) ListLots(c *gin.Context) {
	lots, err := h.ledger.ListLots(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lots)
}

// Totals handles GET /skus/:sku/totals
func (h *LotHandler) Totals(c *gin.Context) {
	totals, err := h.ledger.SkuTotals(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, totals)
}

// Reconcile handles POST /skus/:sku/reconcile, rebuilding lot caches from the log
func (h *LotHandler) Reconcile(c *gin.Context) {
	reports, err := h.ledger.Reconcile(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reports)
}

// GetLot handles GET /skus/:sku/lots/:lot
func (h *LotHandler) GetLot(c *gin.Context) {
	state, err := h.ledger.GetLotState(c.Request.Context(), c.Param("sku"), c.Param("lot"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, state)
}

// ListEvents handles GET /skus/:sku/lots/:lot/events
func (h *LotHandler) ListEvents(c *gin.Context) {
	events, err := h.ledger.Replay(c.Request.Context(), c.Param("sku"), c.Param("lot"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, events)
}

// Verify handles GET /skus/:sku/lots/:lot/verify
func (h *LotHandler) Verify(c *gin.Context) {
	report, err := h.ledger.Verify(c.Request.Context(), c.Param("sku"), c.Param("lot"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
