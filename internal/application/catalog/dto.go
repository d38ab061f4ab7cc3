package catalog

import (
	"time"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/google/uuid"
)

// RegisterSkuRequest represents a request to register a SKU
type RegisterSkuRequest struct {
	Code          string `json:"code" binding:"required,max=64"`
	Name          string `json:"name" binding:"omitempty,max=200"`
	UnitOfMeasure string `json:"unit_of_measure" binding:"omitempty,max=20"`
}

// AddVarianceRequest represents a request to add a variance to a SKU
type AddVarianceRequest struct {
	Name           string `json:"name" binding:"required,max=200"`
	Channel        string `json:"channel" binding:"omitempty,max=100"`
	IdempotencyKey string `json:"idempotency_key" binding:"omitempty,max=255"`
}

// AppendNoteRequest represents a note to attach to a client or SKU
type AppendNoteRequest struct {
	SubjectID      string    `json:"subject_id" binding:"required"`
	Text           string    `json:"text" binding:"required"`
	Author         string    `json:"author"`
	CreatedAt      time.Time `json:"created_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// VarianceResponse represents a variance in API responses
type VarianceResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Channel        string    `json:"channel,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SkuResponse represents a SKU in API responses
type SkuResponse struct {
	ID            uuid.UUID          `json:"id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	UnitOfMeasure string             `json:"unit_of_measure"`
	Variances     []VarianceResponse `json:"variances"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ToSkuResponse converts a domain SKU to a response
func ToSkuResponse(s *catalog.Sku) *SkuResponse {
	variances := make([]VarianceResponse, 0, len(s.Variances))
	for i := range s.Variances {
		variances = append(variances, *toVarianceResponse(&s.Variances[i]))
	}
	return &SkuResponse{
		ID:            s.ID,
		Code:          s.Code,
		Name:          s.Name,
		UnitOfMeasure: s.UnitOfMeasure,
		Variances:     variances,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toVarianceResponse(v *catalog.Variance) *VarianceResponse {
	return &VarianceResponse{
		ID:             v.ID,
		Name:           v.Name,
		Channel:        v.Channel,
		IdempotencyKey: v.IdempotencyKey,
		CreatedAt:      v.CreatedAt,
	}
}
