package catalog

import (
	"context"
)

// SkuRepository defines the interface for SKU persistence
type SkuRepository interface {
	// FindByCode finds a SKU and its variances by code, or returns shared.ErrNotFound
	FindByCode(ctx context.Context, code string) (*Sku, error)

	// List returns all SKUs ordered by code
	List(ctx context.Context) ([]Sku, error)

	// Create stores a new SKU; an existing code yields shared.ErrAlreadyExists
	Create(ctx context.Context, sku *Sku) error

	// Save updates a SKU with optimistic locking and stores new variances
	Save(ctx context.Context, sku *Sku) error

	// Delete removes a SKU by code
	Delete(ctx context.Context, code string) error
}

// NoteRepository defines the interface for note persistence
type NoteRepository interface {
	// Append stores a note; it returns false when the idempotency key is already recorded
	Append(ctx context.Context, note *Note) (bool, error)

	// ListBySubject returns a subject's notes, oldest first
	ListBySubject(ctx context.Context, subjectID string) ([]Note, error)
}
