package dto

import (
	"net/http"
	"testing"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{shared.CodeValidation, http.StatusBadRequest},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeInsufficientInventory, http.StatusUnprocessableEntity},
		{shared.CodeNegativeQuantity, http.StatusUnprocessableEntity},
		{shared.CodeContention, http.StatusConflict},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{shared.CodeDuplicateEvent, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "sku", Message: "This field is required"},
	})

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, shared.CodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Fields, 1)
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]int{"n": 1})
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}
