package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/lotledger/internal/domain/bulk"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ImportRunRepository provides in-memory import run storage
type ImportRunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]bulk.ImportRun
}

// NewImportRunRepository creates a new in-memory import run repository
func NewImportRunRepository() *ImportRunRepository {
	return &ImportRunRepository{runs: make(map[uuid.UUID]bulk.ImportRun)}
}

var _ bulk.ImportRunRepository = (*ImportRunRepository)(nil)

// FindByID finds an import run by ID
func (r *ImportRunRepository) FindByID(_ context.Context, id uuid.UUID) (*bulk.ImportRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &run, nil
}

// FindByBatch returns every run of a batch, newest first
func (r *ImportRunRepository) FindByBatch(_ context.Context, batchID string) ([]*bulk.ImportRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := make([]*bulk.ImportRun, 0)
	for _, run := range r.runs {
		if run.BatchID == batchID {
			run := run
			runs = append(runs, &run)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

// Save saves an import run
func (r *ImportRunRepository) Save(_ context.Context, run *bulk.ImportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *run
	stored.ErrorDetails = append([]bulk.ImportErrorDetail(nil), run.ErrorDetails...)
	r.runs[run.ID] = stored
	return nil
}
