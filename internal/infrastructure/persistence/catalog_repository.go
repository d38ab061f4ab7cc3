package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSkuRepository implements SkuRepository using GORM
type GormSkuRepository struct {
	db *gorm.DB
}

// NewGormSkuRepository creates a new GormSkuRepository
func NewGormSkuRepository(db *gorm.DB) *GormSkuRepository {
	return &GormSkuRepository{db: db}
}

func preloadVariances(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, name ASC")
}

// FindByCode finds a SKU and its variances by code
func (r *GormSkuRepository) FindByCode(ctx context.Context, code string) (*catalog.Sku, error) {
	var sku catalog.Sku
	if err := r.db.WithContext(ctx).
		Preload("Variances", preloadVariances).
		Where("code = ?", code).
		First(&sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sku, nil
}

// List returns all SKUs ordered by code
func (r *GormSkuRepository) List(ctx context.Context) ([]catalog.Sku, error) {
	var skus []catalog.Sku
	if err := r.db.WithContext(ctx).
		Preload("Variances", preloadVariances).
		Order("code ASC").
		Find(&skus).Error; err != nil {
		return nil, err
	}
	return skus, nil
}

// Create stores a new SKU with its variances
func (r *GormSkuRepository) Create(ctx context.Context, sku *catalog.Sku) error {
	if err := r.db.WithContext(ctx).Create(sku).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("creating sku %s: %w", sku.Code, err)
	}
	return nil
}

// Save updates the SKU row with optimistic locking and inserts variances
// that are not stored yet
func (r *GormSkuRepository) Save(ctx context.Context, sku *catalog.Sku) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&catalog.Sku{}).
			Where("id = ? AND version = ?", sku.ID, sku.Version-1).
			Updates(map[string]any{
				"name":            sku.Name,
				"unit_of_measure": sku.UnitOfMeasure,
				"version":         sku.Version,
				"updated_at":      sku.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if len(sku.Variances) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sku.Variances).Error
	})
}

// Delete removes a SKU and its variances
func (r *GormSkuRepository) Delete(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sku catalog.Sku
		if err := tx.Where("code = ?", code).First(&sku).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if err := tx.Where("sku_id = ?", sku.ID).Delete(&catalog.Variance{}).Error; err != nil {
			return err
		}
		return tx.Delete(&catalog.Sku{}, "id = ?", sku.ID).Error
	})
}

// GormNoteRepository implements NoteRepository using GORM
type GormNoteRepository struct {
	db *gorm.DB
}

// NewGormNoteRepository creates a new GormNoteRepository
func NewGormNoteRepository(db *gorm.DB) *GormNoteRepository {
	return &GormNoteRepository{db: db}
}

// Append inserts the note unless its idempotency key is already stored
func (r *GormNoteRepository) Append(ctx context.Context, note *catalog.Note) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(note)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListBySubject returns a subject's notes, oldest first
func (r *GormNoteRepository) ListBySubject(ctx context.Context, subjectID string) ([]catalog.Note, error) {
	var notes []catalog.Note
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

var (
	_ catalog.SkuRepository  = (*GormSkuRepository)(nil)
	_ catalog.NoteRepository = (*GormNoteRepository)(nil)
)
