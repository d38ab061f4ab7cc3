package manufacturing

import (
	"context"
	"strconv"
	"strings"
	"time"

	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/manufacturing"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// outputSuffix ends the idempotency key of the produced lot's credit
const outputSuffix = "output"

// LotStrategyProvider resolves lot selection policies by name
type LotStrategyProvider interface {
	GetLotStrategy(name string) (strategy.LotSelectionStrategy, error)
}

// Consumption is the quantity drawn from one lot for one BOM input
type Consumption struct {
	InputIndex int             `json:"input_index"`
	SkuCode    string          `json:"sku"`
	LotID      uuid.UUID       `json:"lot_id"`
	LotNumber  string          `json:"lot_number"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

// Result is the outcome of processing a manufacturing order
type Result struct {
	OrderID       string          `json:"order_id"`
	Consumptions  []Consumption   `json:"consumptions"`
	ConsumedValue decimal.Decimal `json:"consumed_value"`
	Output        ledger.LotState `json:"output"`
	// OutputUnitCost is the rolled-up cost booked on the output credit
	OutputUnitCost decimal.Decimal `json:"output_unit_cost"`
	Duplicate      bool            `json:"duplicate"`
}

// Service turns manufacturing orders into consumption debits and one output credit
type Service struct {
	ledger     *appledger.Ledger
	strategies LotStrategyProvider
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a manufacturing service
func NewService(l *appledger.Ledger, strategies LotStrategyProvider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:     l,
		strategies: strategies,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Process consumes every BOM input and produces the output lot in one
// commit. An input that cannot be covered fails the whole order with
// INSUFFICIENT_INVENTORY. The output is costed at
// (consumed value + labor) / produced quantity.
func (s *Service) Process(ctx context.Context, order manufacturing.ManufacturingOrder) (*Result, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	strategies := make([]strategy.LotSelectionStrategy, len(order.Inputs))
	req := appledger.CommitRequest{OperationKey: order.ID}
	outputKey := ledger.NewLotKey(order.Output.SkuCode, order.Output.LotNumber)
	req.Lots = append(req.Lots, outputKey)
	for i, in := range order.Inputs {
		strat, err := s.strategies.GetLotStrategy(in.Policy())
		if err != nil {
			return nil, err
		}
		strategies[i] = strat
		if in.Policy() == strategy.PolicyPinned {
			pinned := ledger.NewLotKey(in.SkuCode, in.PinnedLot)
			if pinned == outputKey {
				return nil, shared.NewValidationError("input %d pins the output lot %s", i, outputKey)
			}
			req.Lots = append(req.Lots, pinned)
		} else {
			req.Skus = append(req.Skus, in.SkuCode)
		}
	}

	asOf := order.CompletedAt
	if asOf.IsZero() {
		asOf = s.now()
	}

	req.Plan = func(ctx context.Context, view *appledger.View) ([]ledger.NewEvent, error) {
		// drawn tracks what earlier inputs already took from a lot
		drawn := make(map[string]decimal.Decimal)
		consumed := decimal.Zero
		events := make([]ledger.NewEvent, 0, len(order.Inputs)+1)

		for i, in := range order.Inputs {
			candidates := make([]strategy.LotCandidate, 0)
			for _, c := range view.Candidates(in.SkuCode) {
				// the output lot is locked to be credited, never drawn from
				if in.SkuCode == outputKey.SkuCode && c.LotNumber == outputKey.LotNumber {
					continue
				}
				if d, ok := drawn[c.LotID]; ok {
					c.Available = c.Available.Sub(d)
				}
				candidates = append(candidates, c)
			}

			sel, err := strategies[i].Select(ctx, strategy.LotSelectionContext{
				SkuCode:   in.SkuCode,
				Quantity:  in.QtyRequired,
				PinnedLot: in.PinnedLot,
				AsOf:      asOf,
			}, candidates)
			if err != nil {
				return nil, err
			}
			if !sel.Satisfied() {
				return nil, shared.NewInsufficientInventoryError(in.SkuCode, in.PinnedLot, in.QtyRequired, sel.AvailableQty).
					WithDetail("input_index", i)
			}

			for _, pick := range sel.Picks {
				drawn[pick.LotID] = drawn[pick.LotID].Add(pick.Quantity)
				consumed = consumed.Add(pick.Quantity.Mul(pick.UnitCost))
				events = append(events, ledger.NewEvent{
					Lot:            ledger.NewLotKey(in.SkuCode, pick.LotNumber),
					Delta:          pick.Quantity.Neg(),
					SourceType:     ledger.SourceTypeManufacturingConsumption,
					SourceID:       order.ID,
					Actor:          order.Actor,
					IdempotencyKey: ledger.JoinKey(order.ID, strconv.Itoa(i), pick.LotID),
					OccurredAt:     order.CompletedAt,
				})
			}
		}

		events = append(events, ledger.NewEvent{
			Lot:            outputKey,
			Delta:          order.Output.QtyProduced,
			UnitCost:       manufacturing.RollUpCost(consumed, order.Output.LaborCost, order.Output.QtyProduced),
			ExpiresAt:      order.Output.ExpiresAt,
			SourceType:     ledger.SourceTypeManufacturingOutput,
			SourceID:       order.ID,
			Actor:          order.Actor,
			IdempotencyKey: ledger.JoinKey(order.ID, outputSuffix),
			OccurredAt:     order.CompletedAt,
		})
		return events, nil
	}

	res, err := s.ledger.Commit(ctx, req)
	if err != nil {
		s.logger.Warn("manufacturing order rejected",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return nil, err
	}

	out := buildResult(order.ID, res)
	s.logger.Info("manufacturing order processed",
		zap.String("order_id", order.ID),
		zap.Int("consumptions", len(out.Consumptions)),
		zap.String("output_lot", out.Output.Key().String()),
		zap.String("output_unit_cost", out.OutputUnitCost.String()),
		zap.Bool("duplicate", out.Duplicate),
	)
	return out, nil
}

func buildResult(orderID string, res *appledger.CommitResult) *Result {
	out := &Result{
		OrderID:       orderID,
		Consumptions:  make([]Consumption, 0, len(res.Events)),
		ConsumedValue: decimal.Zero,
		Duplicate:     res.Duplicate,
	}
	for _, ev := range res.Events {
		if ev.SourceType == ledger.SourceTypeManufacturingOutput {
			out.OutputUnitCost = ev.UnitCost
			if state, ok := res.Lot(ev.Key()); ok {
				out.Output = state
			}
			continue
		}
		qty := ev.Delta.Neg()
		out.Consumptions = append(out.Consumptions, Consumption{
			InputIndex: inputIndex(orderID, ev.IdempotencyKey),
			SkuCode:    ev.SkuCode,
			LotID:      ev.LotID,
			LotNumber:  ev.LotNumber,
			Quantity:   qty,
			UnitCost:   ev.UnitCost,
		})
		out.ConsumedValue = out.ConsumedValue.Add(qty.Mul(ev.UnitCost))
	}
	return out
}

// inputIndex reads the BOM input index back out of "moId:index:lotId"
func inputIndex(orderID, key string) int {
	rest := strings.TrimPrefix(key, orderID+ledger.KeySeparator)
	part, _, _ := strings.Cut(rest, ledger.KeySeparator)
	idx, err := strconv.Atoi(part)
	if err != nil {
		return -1
	}
	return idx
}
