package ledger

import (
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostPrecision is the number of decimal places kept on a lot's unit cost
const CostPrecision int32 = 4

// LotKey is the natural identity of a lot
type LotKey struct {
	SkuCode   string
	LotNumber string
}

// NewLotKey builds a trimmed lot key
func NewLotKey(sku, lotNumber string) LotKey {
	return LotKey{SkuCode: strings.TrimSpace(sku), LotNumber: strings.TrimSpace(lotNumber)}
}

// String returns the lock scope name "sku/lotNumber"
func (k LotKey) String() string {
	return k.SkuCode + "/" + k.LotNumber
}

// IsZero returns true when either part of the key is missing
func (k LotKey) IsZero() bool {
	return k.SkuCode == "" || k.LotNumber == ""
}

// Lot is a distinguishable quantity of one SKU sharing a cost basis.
// Quantity and UnitCost are a cache over the lot's events and are only
// changed by Apply.
type Lot struct {
	shared.BaseAggregateRoot
	SkuCode    string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_lot_sku_number,priority:1"`
	LotNumber  string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_lot_sku_number,priority:2"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Weighted average cost
	ExpiresAt  *time.Time      `gorm:"index"`
	ReceivedAt time.Time       `gorm:"not null;index"` // Time of the creating event, FIFO order key
	EventCount int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Lot) TableName() string {
	return "lots"
}

// NewLot creates an empty lot
func NewLot(key LotKey, receivedAt time.Time, expiresAt *time.Time) (*Lot, error) {
	if key.SkuCode == "" {
		return nil, shared.NewValidationError("sku is required")
	}
	if key.LotNumber == "" {
		return nil, shared.NewValidationError("lot number is required")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	return &Lot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SkuCode:           key.SkuCode,
		LotNumber:         key.LotNumber,
		Quantity:          decimal.Zero,
		UnitCost:          decimal.Zero,
		ExpiresAt:         expiresAt,
		ReceivedAt:        receivedAt,
	}, nil
}

// Key returns the lot's natural key
func (l *Lot) Key() LotKey {
	return LotKey{SkuCode: l.SkuCode, LotNumber: l.LotNumber}
}

// CanApply checks that delta keeps the lot non-negative
func (l *Lot) CanApply(delta decimal.Decimal) error {
	if delta.IsZero() {
		return shared.NewValidationError("event delta must not be zero")
	}
	if l.Quantity.Add(delta).IsNegative() {
		return shared.NewNegativeQuantityError(l.SkuCode, l.LotNumber, l.Quantity, delta)
	}
	return nil
}

// Apply folds one event into the cached state and returns the unit cost the
// event must record. Credits move the cost to the weighted average of the
// old holding and the new units; debits take the lot's current cost and
// leave it unchanged.
func (l *Lot) Apply(delta, eventCost decimal.Decimal) (decimal.Decimal, error) {
	if err := l.CanApply(delta); err != nil {
		return decimal.Zero, err
	}

	recorded := l.UnitCost
	if delta.IsPositive() {
		if eventCost.IsNegative() {
			return decimal.Zero, shared.NewValidationError("unit cost cannot be negative")
		}
		recorded = eventCost
		if l.Quantity.IsPositive() {
			totalValue := l.Quantity.Mul(l.UnitCost).Add(delta.Mul(eventCost))
			totalQuantity := l.Quantity.Add(delta)
			l.UnitCost = totalValue.Div(totalQuantity).Round(CostPrecision)
		} else {
			l.UnitCost = eventCost.Round(CostPrecision)
		}
	}

	l.Quantity = l.Quantity.Add(delta)
	l.EventCount++
	return recorded, nil
}

// Clone returns an independent copy of the lot
func (l *Lot) Clone() *Lot {
	c := *l
	if l.ExpiresAt != nil {
		exp := *l.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

// State returns the read model for the lot
func (l *Lot) State() LotState {
	return LotState{
		LotID:      l.ID,
		SkuCode:    l.SkuCode,
		LotNumber:  l.LotNumber,
		Quantity:   l.Quantity,
		UnitCost:   l.UnitCost,
		ExpiresAt:  l.ExpiresAt,
		ReceivedAt: l.ReceivedAt,
		CreatedAt:  l.CreatedAt,
		EventCount: l.EventCount,
		Version:    l.Version,
	}
}

// LotState is the committed state of a lot
type LotState struct {
	LotID      uuid.UUID       `json:"lot_id"`
	SkuCode    string          `json:"sku"`
	LotNumber  string          `json:"lot_number"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	CreatedAt  time.Time       `json:"created_at"`
	EventCount int64           `json:"event_count"`
	Version    int             `json:"version"`
}

// Key returns the lot key of the state
func (s LotState) Key() LotKey {
	return LotKey{SkuCode: s.SkuCode, LotNumber: s.LotNumber}
}

// Value returns quantity times unit cost
func (s LotState) Value() decimal.Decimal {
	return s.Quantity.Mul(s.UnitCost)
}
