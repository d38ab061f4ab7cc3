package ledger

import (
	"context"
)

// Reader is the read side of the ledger store
type Reader interface {
	// FindLot returns the lot with the given key or shared.ErrNotFound
	FindLot(ctx context.Context, key LotKey) (*Lot, error)
	// ListLots returns a sku's lots, oldest received first
	ListLots(ctx context.Context, sku string) ([]Lot, error)
	// ListEvents returns a lot's events in sequence order
	ListEvents(ctx context.Context, key LotKey) ([]LedgerEvent, error)
	// FindEventsByOperation returns the events whose recorded operation key
	// equals operationKey
	FindEventsByOperation(ctx context.Context, operationKey string) ([]LedgerEvent, error)
}

// Tx is a unit of work against the ledger store. Nothing written through a
// Tx is visible to other readers until the enclosing Execute returns nil.
type Tx interface {
	Reader
	// LockLot reads a lot for update, or returns shared.ErrNotFound
	LockLot(ctx context.Context, key LotKey) (*Lot, error)
	// InsertLot stores a new lot; a concurrent insert of the same key yields shared.ErrConcurrencyConflict
	InsertLot(ctx context.Context, lot *Lot) error
	// SaveLot updates the lot if its stored version is lot.Version-1,
	// otherwise it returns shared.ErrConcurrencyConflict
	SaveLot(ctx context.Context, lot *Lot) error
	// AppendEvents stores events; a known idempotency key yields shared.ErrDuplicateEvent
	AppendEvents(ctx context.Context, events []LedgerEvent) error
}

// Store is the persistence port of the lot ledger
type Store interface {
	Reader
	// Execute runs fn within one atomic transaction.
	// If fn returns an error nothing fn wrote is kept.
	Execute(ctx context.Context, fn func(tx Tx) error) error
}
