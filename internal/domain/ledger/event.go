package ledger

import (
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KeySeparator joins the parts of a composite idempotency key
const KeySeparator = ":"

// QuantityPrecision is the number of decimal places a quantity may carry
const QuantityPrecision int32 = 4

// LedgerEvent is an immutable, committed entry in a lot's history
type LedgerEvent struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LotID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_event_lot_seq,priority:1" json:"lot_id"`
	Sequence       int64           `gorm:"not null;uniqueIndex:idx_ledger_event_lot_seq,priority:2" json:"sequence"`
	SkuCode        string          `gorm:"type:varchar(64);not null;index:idx_ledger_event_lot_key,priority:1" json:"sku"`
	LotNumber      string          `gorm:"type:varchar(64);not null;index:idx_ledger_event_lot_key,priority:2" json:"lot_number"`
	Delta          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"delta"`
	UnitCost       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_cost"`      // Cost per unit carried by this event
	QuantityAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity_after"` // Lot quantity once applied
	CostAfter      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"cost_after"`     // Lot unit cost once applied
	SourceType     SourceType      `gorm:"type:varchar(40);not null;index:idx_ledger_event_source,priority:1" json:"source_type"`
	SourceID       string          `gorm:"type:varchar(128);not null;index:idx_ledger_event_source,priority:2" json:"source_id"`
	Actor          string          `gorm:"type:varchar(128)" json:"actor"`
	IdempotencyKey string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"idempotency_key"`
	OperationKey   string          `gorm:"type:varchar(255);not null;index" json:"operation_key"` // Key of the commit that wrote the event
	OccurredAt     time.Time       `gorm:"not null" json:"occurred_at"`
	RecordedAt     time.Time       `gorm:"not null" json:"recorded_at"`
}

// TableName returns the table name for GORM
func (LedgerEvent) TableName() string {
	return "ledger_events"
}

// Key returns the lot key the event belongs to
func (e LedgerEvent) Key() LotKey {
	return LotKey{SkuCode: e.SkuCode, LotNumber: e.LotNumber}
}

// Value returns the signed value moved by the event
func (e LedgerEvent) Value() decimal.Decimal {
	return e.Delta.Mul(e.UnitCost)
}

// NewEvent is a not-yet-committed ledger event
type NewEvent struct {
	Lot            LotKey
	Delta          decimal.Decimal
	UnitCost       decimal.Decimal // Ignored for debits, which carry the lot's cost
	ExpiresAt      *time.Time      // Only used when the event creates the lot
	SourceType     SourceType
	SourceID       string
	Actor          string
	IdempotencyKey string
	OccurredAt     time.Time
}

// Validate checks the event's own fields, independent of lot state
func (e NewEvent) Validate() error {
	if e.Lot.SkuCode == "" {
		return shared.NewValidationError("sku is required")
	}
	if e.Lot.LotNumber == "" {
		return shared.NewValidationError("lot number is required")
	}
	if !e.SourceType.IsValid() {
		return shared.NewValidationError("unknown source type %q", e.SourceType)
	}
	if strings.TrimSpace(e.IdempotencyKey) == "" {
		return shared.NewValidationError("idempotency key is required")
	}
	if e.Delta.IsZero() {
		return shared.NewValidationError("event delta must not be zero")
	}
	if !e.Delta.Equal(e.Delta.Round(QuantityPrecision)) {
		return shared.NewValidationError("event delta %s has more than %d decimal places", e.Delta.String(), QuantityPrecision)
	}
	if e.SourceType.IsCredit() && e.Delta.IsNegative() {
		return shared.NewValidationError("%s events must add stock", e.SourceType)
	}
	if e.SourceType.IsDebit() && e.Delta.IsPositive() {
		return shared.NewValidationError("%s events must remove stock", e.SourceType)
	}
	if e.UnitCost.IsNegative() {
		return shared.NewValidationError("unit cost cannot be negative")
	}
	return nil
}

// JoinKey builds a composite idempotency key from its parts
func JoinKey(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

// BelongsToOperation reports whether key is the operation key itself or one
// of its children. It only checks the shape of event keys; replays are
// matched on the recorded operation key.
func BelongsToOperation(key, operationKey string) bool {
	return key == operationKey || strings.HasPrefix(key, operationKey+KeySeparator)
}
