package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
)

// LedgerStore keeps lots and their events in process memory. A transaction
// stages its writes and publishes them under one write lock, checking lot
// versions and event keys first.
type LedgerStore struct {
	mu     sync.RWMutex
	lots   map[ledger.LotKey]*ledger.Lot
	events map[uuid.UUID][]ledger.LedgerEvent
	byKey  map[string]ledger.LedgerEvent
	byOp   map[string][]ledger.LedgerEvent
}

// NewLedgerStore creates an empty in-memory ledger store
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		lots:   make(map[ledger.LotKey]*ledger.Lot),
		events: make(map[uuid.UUID][]ledger.LedgerEvent),
		byKey:  make(map[string]ledger.LedgerEvent),
		byOp:   make(map[string][]ledger.LedgerEvent),
	}
}

var _ ledger.Store = (*LedgerStore)(nil)

// FindLot returns a copy of the lot with the given key
func (s *LedgerStore) FindLot(_ context.Context, key ledger.LotKey) (*ledger.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return lot.Clone(), nil
}

// ListLots returns copies of a sku's lots, oldest received first
func (s *LedgerStore) ListLots(_ context.Context, sku string) ([]ledger.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lots := make([]ledger.Lot, 0)
	for key, lot := range s.lots {
		if key.SkuCode == sku {
			lots = append(lots, *lot.Clone())
		}
	}
	sortLots(lots)
	return lots, nil
}

// ListEvents returns a copy of a lot's events in sequence order
func (s *LedgerStore) ListEvents(_ context.Context, key ledger.LotKey) ([]ledger.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[key]
	if !ok {
		return []ledger.LedgerEvent{}, nil
	}
	events := make([]ledger.LedgerEvent, len(s.events[lot.ID]))
	copy(events, s.events[lot.ID])
	return events, nil
}

// FindEventsByOperation returns the events written by the commit of operationKey
func (s *LedgerStore) FindEventsByOperation(_ context.Context, operationKey string) ([]ledger.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make([]ledger.LedgerEvent, len(s.byOp[operationKey]))
	copy(found, s.byOp[operationKey])
	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].RecordedAt.Equal(found[j].RecordedAt) {
			return found[i].RecordedAt.Before(found[j].RecordedAt)
		}
		return found[i].IdempotencyKey < found[j].IdempotencyKey
	})
	return found, nil
}

// Execute runs fn against a staging transaction and publishes its writes atomically
func (s *LedgerStore) Execute(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &ledgerTx{
		store:   s,
		inserts: make(map[ledger.LotKey]*ledger.Lot),
		updates: make(map[ledger.LotKey]*ledger.Lot),
		base:    make(map[ledger.LotKey]int),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return s.publish(tx)
}

func (s *LedgerStore) publish(tx *ledgerTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range tx.inserts {
		if _, exists := s.lots[key]; exists {
			return shared.ErrConcurrencyConflict
		}
	}
	for key := range tx.updates {
		stored, ok := s.lots[key]
		if !ok || stored.Version != tx.base[key] {
			return shared.ErrConcurrencyConflict
		}
	}
	seen := make(map[string]bool, len(tx.events))
	for _, ev := range tx.events {
		if _, exists := s.byKey[ev.IdempotencyKey]; exists || seen[ev.IdempotencyKey] {
			return shared.ErrDuplicateEvent
		}
		seen[ev.IdempotencyKey] = true
	}

	for key, lot := range tx.inserts {
		s.lots[key] = lot.Clone()
	}
	for key, lot := range tx.updates {
		s.lots[key] = lot.Clone()
	}
	for _, ev := range tx.events {
		s.events[ev.LotID] = append(s.events[ev.LotID], ev)
		s.byKey[ev.IdempotencyKey] = ev
		s.byOp[ev.OperationKey] = append(s.byOp[ev.OperationKey], ev)
	}
	return nil
}

// Overwrite replaces a lot's cached state without touching its events.
// It exists so tests can simulate a diverged cache.
func (s *LedgerStore) Overwrite(lot *ledger.Lot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[lot.Key()] = lot.Clone()
}

type ledgerTx struct {
	store   *LedgerStore
	inserts map[ledger.LotKey]*ledger.Lot
	updates map[ledger.LotKey]*ledger.Lot
	base    map[ledger.LotKey]int // version each updated lot was read at
	events  []ledger.LedgerEvent
}

func (t *ledgerTx) staged(key ledger.LotKey) (*ledger.Lot, bool) {
	if lot, ok := t.updates[key]; ok {
		return lot, true
	}
	lot, ok := t.inserts[key]
	return lot, ok
}

func (t *ledgerTx) FindLot(ctx context.Context, key ledger.LotKey) (*ledger.Lot, error) {
	if lot, ok := t.staged(key); ok {
		return lot.Clone(), nil
	}
	return t.store.FindLot(ctx, key)
}

func (t *ledgerTx) LockLot(ctx context.Context, key ledger.LotKey) (*ledger.Lot, error) {
	return t.FindLot(ctx, key)
}

func (t *ledgerTx) ListLots(ctx context.Context, sku string) ([]ledger.Lot, error) {
	lots, err := t.store.ListLots(ctx, sku)
	if err != nil {
		return nil, err
	}
	for i := range lots {
		if lot, ok := t.staged(lots[i].Key()); ok {
			lots[i] = *lot.Clone()
		}
	}
	for key, lot := range t.inserts {
		if key.SkuCode == sku {
			lots = append(lots, *lot.Clone())
		}
	}
	sortLots(lots)
	return lots, nil
}

func (t *ledgerTx) ListEvents(ctx context.Context, key ledger.LotKey) ([]ledger.LedgerEvent, error) {
	events, err := t.store.ListEvents(ctx, key)
	if err != nil {
		return nil, err
	}
	for _, ev := range t.events {
		if ev.Key() == key {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (t *ledgerTx) FindEventsByOperation(ctx context.Context, operationKey string) ([]ledger.LedgerEvent, error) {
	found, err := t.store.FindEventsByOperation(ctx, operationKey)
	if err != nil {
		return nil, err
	}
	for _, ev := range t.events {
		if ev.OperationKey == operationKey {
			found = append(found, ev)
		}
	}
	return found, nil
}

func (t *ledgerTx) InsertLot(_ context.Context, lot *ledger.Lot) error {
	key := lot.Key()
	if _, ok := t.inserts[key]; ok {
		return shared.ErrConcurrencyConflict
	}
	t.inserts[key] = lot.Clone()
	return nil
}

func (t *ledgerTx) SaveLot(_ context.Context, lot *ledger.Lot) error {
	key := lot.Key()
	if ins, ok := t.inserts[key]; ok {
		if ins.Version != lot.Version-1 {
			return shared.ErrConcurrencyConflict
		}
		t.inserts[key] = lot.Clone()
		return nil
	}
	if prev, ok := t.updates[key]; ok {
		if prev.Version != lot.Version-1 {
			return shared.ErrConcurrencyConflict
		}
	} else {
		t.base[key] = lot.Version - 1
	}
	t.updates[key] = lot.Clone()
	return nil
}

func (t *ledgerTx) AppendEvents(_ context.Context, events []ledger.LedgerEvent) error {
	t.events = append(t.events, events...)
	return nil
}

func sortLots(lots []ledger.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].ReceivedAt.Equal(lots[j].ReceivedAt) {
			return lots[i].ReceivedAt.Before(lots[j].ReceivedAt)
		}
		if !lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].CreatedAt.Before(lots[j].CreatedAt)
		}
		return lots[i].LotNumber < lots[j].LotNumber
	})
}
