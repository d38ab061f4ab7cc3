package catalog

import (
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Sku is a stock-keeping unit, identified by its external code
type Sku struct {
	shared.BaseAggregateRoot
	Code          string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name          string     `gorm:"type:varchar(200);not null"`
	UnitOfMeasure string     `gorm:"type:varchar(20);not null"`
	Variances     []Variance `gorm:"foreignKey:SkuID;references:ID"`
}

// TableName returns the table name for GORM
func (Sku) TableName() string {
	return "skus"
}

// Variance is a named variant of a SKU, optionally bound to a site or channel
type Variance struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	SkuID          uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_variance_sku_name_channel,priority:1"`
	Name           string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_variance_sku_name_channel,priority:2"`
	Channel        string    `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_variance_sku_name_channel,priority:3"`
	IdempotencyKey string    `gorm:"type:varchar(255);uniqueIndex"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Variance) TableName() string {
	return "sku_variances"
}

// NewSku creates a new SKU
func NewSku(code, name, unit string) (*Sku, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewValidationError("sku code is required")
	}
	if len(code) > 64 {
		return nil, shared.NewValidationError("sku code cannot exceed 64 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = code
	}
	unit = strings.TrimSpace(unit)
	if unit == "" {
		unit = "pcs"
	}

	return &Sku{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		UnitOfMeasure:     unit,
		Variances:         make([]Variance, 0),
	}, nil
}

// AddVariance appends a variance unless one with the same idempotency key
// or the same name and channel already exists. The returned bool is false
// when the existing variance was returned instead.
func (s *Sku) AddVariance(name, channel, idempotencyKey string) (*Variance, bool, error) {
	name = strings.TrimSpace(name)
	channel = strings.TrimSpace(channel)
	if name == "" {
		return nil, false, shared.NewValidationError("variance name is required")
	}

	for i := range s.Variances {
		v := &s.Variances[i]
		if idempotencyKey != "" && v.IdempotencyKey == idempotencyKey {
			return v, false, nil
		}
		if strings.EqualFold(v.Name, name) && strings.EqualFold(v.Channel, channel) {
			return v, false, nil
		}
	}

	v := Variance{
		ID:             uuid.New(),
		SkuID:          s.ID,
		Name:           name,
		Channel:        channel,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}
	s.Variances = append(s.Variances, v)
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
	return &s.Variances[len(s.Variances)-1], true, nil
}

// FindVariance returns the variance with the given id
func (s *Sku) FindVariance(id uuid.UUID) (*Variance, bool) {
	for i := range s.Variances {
		if s.Variances[i].ID == id {
			return &s.Variances[i], true
		}
	}
	return nil, false
}

// Rename updates the descriptive fields of the SKU
func (s *Sku) Rename(name, unit string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("sku name is required")
	}
	s.Name = name
	if unit = strings.TrimSpace(unit); unit != "" {
		s.UnitOfMeasure = unit
	}
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
	return nil
}
