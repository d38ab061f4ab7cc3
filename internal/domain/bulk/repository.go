package bulk

import (
	"context"

	"github.com/google/uuid"
)

// ImportRunRepository defines the interface for import run persistence
type ImportRunRepository interface {
	// FindByID finds an import run by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ImportRun, error)

	// FindByBatch returns every run of a batch, newest first
	FindByBatch(ctx context.Context, batchID string) ([]*ImportRun, error)

	// Save saves an import run (create or update)
	Save(ctx context.Context, run *ImportRun) error
}
