package receiving

import (
	"context"

	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/trade"
	"go.uber.org/zap"
)

// Service books purchase receipts and opening balances into the ledger
type Service struct {
	ledger *appledger.Ledger
	logger *zap.Logger
}

// NewService creates a receiving service
func NewService(l *appledger.Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: l, logger: logger}
}

// Receive books one received purchase order line as a receiving credit,
// creating the lot on first receipt. Re-sending the same line is answered
// from the log with Duplicate set.
func (s *Service) Receive(ctx context.Context, li trade.PurchaseOrderLineItem) (*appledger.AppendResult, error) {
	if err := li.Validate(); err != nil {
		return nil, err
	}

	res, err := s.ledger.AppendEvent(ctx, ledger.NewEvent{
		Lot:            ledger.NewLotKey(li.SkuCode, li.LotNumber),
		Delta:          li.QtyReceived,
		UnitCost:       li.UnitCost,
		ExpiresAt:      li.ExpiresAt,
		SourceType:     ledger.SourceTypeReceiving,
		SourceID:       li.PurchaseOrderID,
		Actor:          li.ReceivedBy,
		IdempotencyKey: li.IdempotencyKey(),
		OccurredAt:     li.ReceivedAt,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase line received",
		zap.String("idempotency_key", li.IdempotencyKey()),
		zap.String("sku", li.SkuCode),
		zap.String("lot", li.LotNumber),
		zap.String("quantity", li.QtyReceived.String()),
		zap.Bool("duplicate", res.Duplicate),
	)
	return res, nil
}

// RecordOpeningBalance seeds a lot from an imported balance
func (s *Service) RecordOpeningBalance(ctx context.Context, b ledger.OpeningBalance) (*appledger.AppendResult, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	res, err := s.ledger.AppendEvent(ctx, ledger.NewEvent{
		Lot:            b.Lot(),
		Delta:          b.Quantity,
		UnitCost:       b.UnitCost,
		ExpiresAt:      b.ExpiresAt,
		SourceType:     ledger.SourceTypeOpeningBalance,
		SourceID:       b.Key(),
		Actor:          b.Actor,
		IdempotencyKey: b.Key(),
		OccurredAt:     b.AsOf,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("opening balance recorded",
		zap.String("idempotency_key", b.Key()),
		zap.String("lot", b.Lot().String()),
		zap.Bool("duplicate", res.Duplicate),
	)
	return res, nil
}
