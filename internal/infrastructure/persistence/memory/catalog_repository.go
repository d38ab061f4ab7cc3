package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/shared"
)

// SkuRepository provides in-memory SKU storage
type SkuRepository struct {
	mu   sync.RWMutex
	skus map[string]*catalog.Sku
}

// NewSkuRepository creates a new in-memory SKU repository
func NewSkuRepository() *SkuRepository {
	return &SkuRepository{skus: make(map[string]*catalog.Sku)}
}

// Verify interface compliance
var _ catalog.SkuRepository = (*SkuRepository)(nil)

func cloneSku(s *catalog.Sku) *catalog.Sku {
	c := *s
	c.Variances = make([]catalog.Variance, len(s.Variances))
	copy(c.Variances, s.Variances)
	return &c
}

// FindByCode finds a SKU by code
func (r *SkuRepository) FindByCode(_ context.Context, code string) (*catalog.Sku, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sku, ok := r.skus[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneSku(sku), nil
}

// List returns all SKUs ordered by code
func (r *SkuRepository) List(_ context.Context) ([]catalog.Sku, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	skus := make([]catalog.Sku, 0, len(r.skus))
	for _, s := range r.skus {
		skus = append(skus, *cloneSku(s))
	}
	sort.Slice(skus, func(i, j int) bool { return skus[i].Code < skus[j].Code })
	return skus, nil
}

// Create stores a new SKU
func (r *SkuRepository) Create(_ context.Context, sku *catalog.Sku) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skus[sku.Code]; exists {
		return shared.ErrAlreadyExists
	}
	r.skus[sku.Code] = cloneSku(sku)
	return nil
}

// Save updates a SKU if the stored version is sku.Version-1
func (r *SkuRepository) Save(_ context.Context, sku *catalog.Sku) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.skus[sku.Code]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != sku.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.skus[sku.Code] = cloneSku(sku)
	return nil
}

// Delete removes a SKU
func (r *SkuRepository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.skus[code]; !ok {
		return shared.ErrNotFound
	}
	delete(r.skus, code)
	return nil
}

// NoteRepository provides in-memory note storage
type NoteRepository struct {
	mu    sync.RWMutex
	notes []catalog.Note
	keys  map[string]bool
}

// NewNoteRepository creates a new in-memory note repository
func NewNoteRepository() *NoteRepository {
	return &NoteRepository{keys: make(map[string]bool)}
}

var _ catalog.NoteRepository = (*NoteRepository)(nil)

// Append stores a note unless its idempotency key is already known
func (r *NoteRepository) Append(_ context.Context, note *catalog.Note) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keys[note.IdempotencyKey] {
		return false, nil
	}
	r.keys[note.IdempotencyKey] = true
	r.notes = append(r.notes, *note)
	return true, nil
}

// ListBySubject returns a subject's notes, oldest first
func (r *NoteRepository) ListBySubject(_ context.Context, subjectID string) ([]catalog.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	notes := make([]catalog.Note, 0)
	for _, n := range r.notes {
		if n.SubjectID == subjectID {
			notes = append(notes, n)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.Before(notes[j].CreatedAt) })
	return notes, nil
}
