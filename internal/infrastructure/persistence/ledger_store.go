package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerStore implements ledger.Store on a relational database. Each
// Execute is one database transaction; on Postgres lots are read with
// SELECT ... FOR UPDATE and every lot update is a version compare-and-set.
type GormLedgerStore struct {
	ledgerQueries
}

// NewGormLedgerStore creates a new GormLedgerStore
func NewGormLedgerStore(db *gorm.DB) *GormLedgerStore {
	return &GormLedgerStore{ledgerQueries{db: db}}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormLedgerStore) Execute(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerTx{ledgerQueries{db: tx}})
	})
}

type ledgerQueries struct {
	db *gorm.DB
}

// FindLot finds a lot by sku and lot number
func (q ledgerQueries) FindLot(ctx context.Context, key ledger.LotKey) (*ledger.Lot, error) {
	return q.findLot(q.db.WithContext(ctx), key)
}

func (q ledgerQueries) findLot(db *gorm.DB, key ledger.LotKey) (*ledger.Lot, error) {
	var lot ledger.Lot
	if err := db.Where("sku_code = ? AND lot_number = ?", key.SkuCode, key.LotNumber).First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// ListLots returns a sku's lots, oldest received first
func (q ledgerQueries) ListLots(ctx context.Context, sku string) ([]ledger.Lot, error) {
	var lots []ledger.Lot
	if err := q.db.WithContext(ctx).
		Where("sku_code = ?", sku).
		Order("received_at ASC, created_at ASC, lot_number ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// ListEvents returns a lot's events in sequence order
func (q ledgerQueries) ListEvents(ctx context.Context, key ledger.LotKey) ([]ledger.LedgerEvent, error) {
	var events []ledger.LedgerEvent
	if err := q.db.WithContext(ctx).
		Where("sku_code = ? AND lot_number = ?", key.SkuCode, key.LotNumber).
		Order("sequence ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// FindEventsByOperation returns the events written by the commit of operationKey
func (q ledgerQueries) FindEventsByOperation(ctx context.Context, operationKey string) ([]ledger.LedgerEvent, error) {
	var events []ledger.LedgerEvent
	if err := q.db.WithContext(ctx).
		Where("operation_key = ?", operationKey).
		Order("recorded_at ASC, idempotency_key ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

type gormLedgerTx struct {
	ledgerQueries
}

// LockLot reads a lot for update. SQLite serializes writers itself and has
// no row locks, so the locking clause is only sent to Postgres.
func (t *gormLedgerTx) LockLot(ctx context.Context, key ledger.LotKey) (*ledger.Lot, error) {
	db := t.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.findLot(db, key)
}

// InsertLot stores a new lot
func (t *gormLedgerTx) InsertLot(ctx context.Context, lot *ledger.Lot) error {
	if err := t.db.WithContext(ctx).Create(lot).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrConcurrencyConflict
		}
		return fmt.Errorf("inserting lot %s: %w", lot.Key(), err)
	}
	return nil
}

// SaveLot saves with optimistic locking (checks version)
func (t *gormLedgerTx) SaveLot(ctx context.Context, lot *ledger.Lot) error {
	result := t.db.WithContext(ctx).
		Model(&ledger.Lot{}).
		Where("id = ? AND version = ?", lot.ID, lot.Version-1).
		Updates(map[string]any{
			"quantity":    lot.Quantity,
			"unit_cost":   lot.UnitCost,
			"expires_at":  lot.ExpiresAt,
			"event_count": lot.EventCount,
			"version":     lot.Version,
			"updated_at":  lot.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("saving lot %s: %w", lot.Key(), result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// AppendEvents inserts events; a recorded idempotency key yields shared.ErrDuplicateEvent
func (t *gormLedgerTx) AppendEvents(ctx context.Context, events []ledger.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := t.db.WithContext(ctx).CreateInBatches(events, 100).Error; err != nil {
		switch {
		case violates(err, "idempotency_key"):
			return shared.ErrDuplicateEvent
		case isUniqueViolation(err):
			// Same lot sequence written by a concurrent commit
			return shared.ErrConcurrencyConflict
		}
		return fmt.Errorf("appending ledger events: %w", err)
	}
	return nil
}

var (
	_ ledger.Store = (*GormLedgerStore)(nil)
	_ ledger.Tx    = (*gormLedgerTx)(nil)
)
