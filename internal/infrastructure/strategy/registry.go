package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/shared/strategy"
	"github.com/erp/lotledger/internal/infrastructure/strategy/lot"
)

// StrategyRegistry manages lot selection strategy registrations
type StrategyRegistry struct {
	mu            sync.RWMutex
	lotStrategies map[string]strategy.LotSelectionStrategy
	defaultLot    string
}

// NewStrategyRegistry creates a new, empty strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		lotStrategies: make(map[string]strategy.LotSelectionStrategy),
	}
}

// NewRegistryWithDefaults creates a registry with fifo, fefo and pinned
// registered and fifo as the default.
func NewRegistryWithDefaults() *StrategyRegistry {
	r := NewStrategyRegistry()
	fifo := lot.NewFIFOLotStrategy()
	// Registration into a fresh registry cannot collide
	_ = r.RegisterLotStrategy(fifo)
	_ = r.RegisterLotStrategy(lot.NewFEFOLotStrategy())
	_ = r.RegisterLotStrategy(lot.NewPinnedLotStrategy())
	r.defaultLot = fifo.Name()
	return r
}

// RegisterLotStrategy registers a lot selection strategy
func (r *StrategyRegistry) RegisterLotStrategy(s strategy.LotSelectionStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.lotStrategies[name]; exists {
		return fmt.Errorf("%w: lot strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.lotStrategies[name] = s
	return nil
}

// GetLotStrategy returns a lot strategy by name (case-insensitive), or the default if name is empty
func (r *StrategyRegistry) GetLotStrategy(name string) (strategy.LotSelectionStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.defaultLot
		if name == "" {
			return nil, fmt.Errorf("%w: no default lot strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.lotStrategies[name]
	if !exists {
		return nil, shared.NewValidationError("unknown lot selection policy %q", name)
	}
	return s, nil
}

// SetDefaultLotStrategy sets the strategy used when no policy is named
func (r *StrategyRegistry) SetDefaultLotStrategy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lotStrategies[name]; !exists {
		return fmt.Errorf("%w: lot strategy '%s' not found", shared.ErrNotFound, name)
	}
	r.defaultLot = name
	return nil
}

// ListLotStrategies returns all registered lot strategy names
func (r *StrategyRegistry) ListLotStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.lotStrategies))
	for name := range r.lotStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
