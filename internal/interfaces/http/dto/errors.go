package dto

import (
	"net/http"

	"github.com/erp/lotledger/internal/domain/shared"
)

// Transport-level error codes; domain failures keep the codes of shared.DomainError
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeValidation      = shared.CodeValidation
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	shared.CodeValidation: http.StatusBadRequest,
	shared.CodeImportRow:  http.StatusBadRequest,
	shared.CodeNotFound:   http.StatusNotFound,

	// Both stock failures are business rule rejections
	shared.CodeInsufficientInventory: http.StatusUnprocessableEntity,
	shared.CodeNegativeQuantity:      http.StatusUnprocessableEntity,
	shared.CodeInvalidState:          http.StatusUnprocessableEntity,

	shared.CodeContention:          http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeAlreadyExists:       http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
