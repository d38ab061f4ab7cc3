package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes surfaced by the ledger and its processors
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeNegativeQuantity      = "NEGATIVE_QUANTITY"
	CodeDuplicateEvent        = "DUPLICATE_EVENT"
	CodeContention            = "CONTENTION"
	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	CodeImportRow             = "IMPORT_ROW_ERROR"
	CodeInvalidState          = "INVALID_STATE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so wrapped sentinels
// and freshly built errors compare equal under errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error with an extra detail attached
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrContention          = NewDomainError(CodeContention, "Lot is busy, retry later")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficient        = NewDomainError(CodeInsufficientInventory, "Insufficient inventory available")
	ErrNegativeQuantity    = NewDomainError(CodeNegativeQuantity, "Quantity on hand cannot become negative")
	ErrDuplicateEvent      = NewDomainError(CodeDuplicateEvent, "Event already recorded")
)

// NewValidationError creates a VALIDATION_ERROR with the given message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a NOT_FOUND error naming the missing resource
func NewNotFoundError(resource, id string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %q not found", resource, id)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewInsufficientInventoryError reports a shortfall for a sku, or a single lot when lot is set
func NewInsufficientInventoryError(sku, lot string, requested, available decimal.Decimal) *DomainError {
	target := sku
	if lot != "" {
		target = sku + "/" + lot
	}
	err := NewDomainError(CodeInsufficientInventory,
		fmt.Sprintf("insufficient inventory for %s: requested %s, available %s", target, requested.String(), available.String())).
		WithDetail("sku", sku).
		WithDetail("requested", requested.String()).
		WithDetail("available", available.String())
	if lot != "" {
		err = err.WithDetail("lot", lot)
	}
	return err
}

// NewNegativeQuantityError reports an event that would drive a lot below zero
func NewNegativeQuantityError(sku, lot string, onHand, delta decimal.Decimal) *DomainError {
	return NewDomainError(CodeNegativeQuantity,
		fmt.Sprintf("lot %s/%s has %s on hand, cannot apply %s", sku, lot, onHand.String(), delta.String())).
		WithDetail("sku", sku).
		WithDetail("lot", lot).
		WithDetail("on_hand", onHand.String()).
		WithDetail("delta", delta.String())
}

// NewContentionError reports that a lot scope could not be acquired or committed in time
func NewContentionError(scope string, cause error) *DomainError {
	msg := fmt.Sprintf("contention on %s", scope)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return NewDomainError(CodeContention, msg).WithDetail("scope", scope)
}

// ErrorCode returns the code of the first DomainError in err's chain, or "" if none
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err carries a DomainError with the given code
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
