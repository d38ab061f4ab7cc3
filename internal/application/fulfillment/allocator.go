package fulfillment

import (
	"context"
	"time"

	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/shared/strategy"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LotStrategyProvider resolves lot selection policies by name
type LotStrategyProvider interface {
	// GetLotStrategy returns the named strategy, or the default when name is empty
	GetLotStrategy(name string) (strategy.LotSelectionStrategy, error)
}

// Allocation is the quantity shipped from one lot
type Allocation struct {
	LotID     uuid.UUID       `json:"lot_id"`
	LotNumber string          `json:"lot_number"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// AllocationResult is the outcome of shipping one sale order line
type AllocationResult struct {
	OperationKey string       `json:"operation_key"`
	SkuCode      string       `json:"sku"`
	Allocations  []Allocation `json:"allocations"`
	// COGS is the cost of goods sold, the sum of quantity times lot cost
	COGS      decimal.Decimal `json:"cogs"`
	Duplicate bool            `json:"duplicate"`
}

// Allocator draws sale order lines from lots
type Allocator struct {
	ledger     *appledger.Ledger
	strategies LotStrategyProvider
	logger     *zap.Logger
	now        func() time.Time
}

// NewAllocator creates a fulfillment allocator
func NewAllocator(l *appledger.Ledger, strategies LotStrategyProvider, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{
		ledger:     l,
		strategies: strategies,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Allocate ships a sale order line. A pinned lot is the only lot drawn
// from; otherwise the line's policy (FIFO when empty) spreads the quantity
// over the sku's lots. The shipment is all-or-nothing: when the lots cannot
// cover the line, INSUFFICIENT_INVENTORY is returned and nothing is written.
func (a *Allocator) Allocate(ctx context.Context, li trade.SaleOrderLineItem) (*AllocationResult, error) {
	if err := li.Validate(); err != nil {
		return nil, err
	}

	policy := li.Policy
	req := appledger.CommitRequest{OperationKey: li.OperationKey()}
	if li.PinnedLot != "" {
		policy = strategy.PolicyPinned
		req.Lots = []ledger.LotKey{ledger.NewLotKey(li.SkuCode, li.PinnedLot)}
	} else {
		req.Skus = []string{li.SkuCode}
	}
	strat, err := a.strategies.GetLotStrategy(policy)
	if err != nil {
		return nil, err
	}

	asOf := li.ShippedAt
	if asOf.IsZero() {
		asOf = a.now()
	}

	req.Plan = func(ctx context.Context, view *appledger.View) ([]ledger.NewEvent, error) {
		sel, err := strat.Select(ctx, strategy.LotSelectionContext{
			SkuCode:   li.SkuCode,
			Quantity:  li.Quantity,
			PinnedLot: li.PinnedLot,
			AsOf:      asOf,
		}, view.Candidates(li.SkuCode))
		if err != nil {
			return nil, err
		}
		if !sel.Satisfied() {
			return nil, shared.NewInsufficientInventoryError(li.SkuCode, li.PinnedLot, li.Quantity, sel.AvailableQty)
		}

		events := make([]ledger.NewEvent, 0, len(sel.Picks))
		for _, pick := range sel.Picks {
			events = append(events, ledger.NewEvent{
				Lot:            ledger.NewLotKey(li.SkuCode, pick.LotNumber),
				Delta:          pick.Quantity.Neg(),
				SourceType:     ledger.SourceTypeShipment,
				SourceID:       li.SaleOrderID,
				Actor:          li.ShippedBy,
				IdempotencyKey: ledger.JoinKey(li.SaleOrderID, li.LineItemID, pick.LotID),
				OccurredAt:     li.ShippedAt,
			})
		}
		return events, nil
	}

	res, err := a.ledger.Commit(ctx, req)
	if err != nil {
		if shared.IsCode(err, shared.CodeInsufficientInventory) {
			a.logger.Warn("shipment rejected",
				zap.String("operation_key", li.OperationKey()),
				zap.String("sku", li.SkuCode),
				zap.String("requested", li.Quantity.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	out := resultFromEvents(li, res)
	a.logger.Info("sale order line shipped",
		zap.String("operation_key", out.OperationKey),
		zap.String("sku", li.SkuCode),
		zap.Int("lots", len(out.Allocations)),
		zap.String("cogs", out.COGS.String()),
		zap.Bool("duplicate", out.Duplicate),
	)
	return out, nil
}

func resultFromEvents(li trade.SaleOrderLineItem, res *appledger.CommitResult) *AllocationResult {
	out := &AllocationResult{
		OperationKey: li.OperationKey(),
		SkuCode:      li.SkuCode,
		Allocations:  make([]Allocation, 0, len(res.Events)),
		COGS:         decimal.Zero,
		Duplicate:    res.Duplicate,
	}
	for _, ev := range res.Events {
		qty := ev.Delta.Neg()
		out.Allocations = append(out.Allocations, Allocation{
			LotID:     ev.LotID,
			LotNumber: ev.LotNumber,
			Quantity:  qty,
			UnitCost:  ev.UnitCost,
		})
		out.COGS = out.COGS.Add(qty.Mul(ev.UnitCost))
	}
	return out
}
