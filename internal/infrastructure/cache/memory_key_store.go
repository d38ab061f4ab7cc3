package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
)

// MemoryKeyStore remembers processed keys in process memory. Expired keys
// are ignored on read and swept periodically.
type MemoryKeyStore struct {
	mu        sync.RWMutex
	expiries  map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryKeyStore creates a store sweeping expired keys every interval
func NewMemoryKeyStore(interval time.Duration) *MemoryKeyStore {
	return newMemoryKeyStore(interval, time.Now)
}

func newMemoryKeyStore(interval time.Duration, now func() time.Time) *MemoryKeyStore {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s := &MemoryKeyStore{
		expiries: make(map[string]time.Time),
		now:      now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(interval)
	return s
}

// MarkProcessed implements shared.IdempotencyStore
func (s *MemoryKeyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiries[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiries[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed implements shared.IdempotencyStore
func (s *MemoryKeyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.expiries[key]
	return ok && s.now().Before(exp), nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *MemoryKeyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of remembered keys, expired or not
func (s *MemoryKeyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiries)
}

func (s *MemoryKeyStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryKeyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, exp := range s.expiries {
		if !now.Before(exp) {
			delete(s.expiries, key)
		}
	}
}

var _ shared.IdempotencyStore = (*MemoryKeyStore)(nil)
