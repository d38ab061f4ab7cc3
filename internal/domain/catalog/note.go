package catalog

import (
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Note is free text attached to a client or a SKU by an import
type Note struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	SubjectID      string    `gorm:"type:varchar(128);not null;index"`
	Text           string    `gorm:"type:text;not null"`
	Author         string    `gorm:"type:varchar(128)"`
	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Note) TableName() string {
	return "notes"
}

// NewNote creates a note; createdAt defaults to now
func NewNote(subjectID, text, author string, createdAt time.Time, idempotencyKey string) (*Note, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, shared.NewValidationError("note subject is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, shared.NewValidationError("note text is required")
	}
	if idempotencyKey == "" {
		return nil, shared.NewValidationError("note idempotency key is required")
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &Note{
		ID:             uuid.New(),
		SubjectID:      subjectID,
		Text:           text,
		Author:         strings.TrimSpace(author),
		IdempotencyKey: idempotencyKey,
		CreatedAt:      createdAt,
	}, nil
}
