package audit

import (
	"context"

	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"go.uber.org/zap"
)

// Service records signed corrections from stock counts
type Service struct {
	ledger *appledger.Ledger
	logger *zap.Logger
}

// NewService creates an audit adjustment service
func NewService(l *appledger.Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: l, logger: logger}
}

// Adjust records one audit-adjustment event keyed by the adjustment id.
// A positive adjustment is valued at the lot's current cost, so it moves
// quantity without moving the cost basis. Driving the lot below zero is
// reported as a validation failure.
func (s *Service) Adjust(ctx context.Context, adj ledger.AuditAdjustment) (*appledger.AppendResult, error) {
	if err := adj.Validate(); err != nil {
		return nil, err
	}
	key := adj.Lot()

	res, err := s.ledger.Commit(ctx, appledger.CommitRequest{
		OperationKey: adj.AdjustmentID,
		Lots:         []ledger.LotKey{key},
		Plan: func(_ context.Context, view *appledger.View) ([]ledger.NewEvent, error) {
			state, ok := view.Lot(key)
			if !ok {
				return nil, shared.NewNotFoundError("lot", key.String())
			}
			return []ledger.NewEvent{{
				Lot:            key,
				Delta:          adj.Delta,
				UnitCost:       state.UnitCost,
				SourceType:     ledger.SourceTypeAuditAdjustment,
				SourceID:       adj.AdjustmentID,
				Actor:          adj.Author,
				IdempotencyKey: adj.AdjustmentID,
				OccurredAt:     adj.OccurredAt,
			}}, nil
		},
	})
	if err != nil {
		if shared.IsCode(err, shared.CodeNegativeQuantity) {
			return nil, shared.NewDomainError(shared.CodeValidation, err.Error()).
				WithDetail("lot", key.String()).
				WithDetail("delta", adj.Delta.String())
		}
		return nil, err
	}

	out := &appledger.AppendResult{Duplicate: res.Duplicate}
	if len(res.Events) > 0 {
		out.Event = res.Events[0]
	}
	if state, ok := res.Lot(key); ok {
		out.Lot = state
	}

	s.logger.Info("audit adjustment recorded",
		zap.String("adjustment_id", adj.AdjustmentID),
		zap.String("lot", key.String()),
		zap.String("delta", adj.Delta.String()),
		zap.String("reason", adj.Reason),
		zap.Bool("duplicate", res.Duplicate),
	)
	return out, nil
}
