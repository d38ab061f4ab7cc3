package persistence

import (
	"context"
	"errors"

	"github.com/erp/lotledger/internal/domain/bulk"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormImportRunRepository implements ImportRunRepository using GORM
type GormImportRunRepository struct {
	db *gorm.DB
}

// NewGormImportRunRepository creates a new GormImportRunRepository
func NewGormImportRunRepository(db *gorm.DB) *GormImportRunRepository {
	return &GormImportRunRepository{db: db}
}

// FindByID finds an import run by ID
func (r *GormImportRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportRun, error) {
	var run bulk.ImportRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := run.SetErrorDetailsFromJSON(run.ErrorDetailsRaw); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindByBatch returns every run of a batch, newest first
func (r *GormImportRunRepository) FindByBatch(ctx context.Context, batchID string) ([]*bulk.ImportRun, error) {
	var runs []*bulk.ImportRun
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at DESC").
		Find(&runs).Error; err != nil {
		return nil, err
	}
	for _, run := range runs {
		if err := run.SetErrorDetailsFromJSON(run.ErrorDetailsRaw); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Save saves an import run (create or update)
func (r *GormImportRunRepository) Save(ctx context.Context, run *bulk.ImportRun) error {
	raw, err := run.ErrorDetailsJSON()
	if err != nil {
		return err
	}
	run.ErrorDetailsRaw = raw
	return r.db.WithContext(ctx).Save(run).Error
}

var _ bulk.ImportRunRepository = (*GormImportRunRepository)(nil)
