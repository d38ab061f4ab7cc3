package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Row error codes for problems found while reading a file
const (
	ErrCodeImportMalformedRow = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeImportInvalidType  = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeImportInvalidDate  = "ERR_IMPORT_INVALID_FORMAT"
)

// File level errors
var (
	// ErrEmptyFile is returned when the file has no content
	ErrEmptyFile = errors.New("import file is empty")

	// ErrInvalidEncoding is returned when a CSV file is not UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding, expected UTF-8")

	// ErrMissingHeader is returned when the file has no header row
	ErrMissingHeader = errors.New("import file missing header row")

	// ErrNoDataRows is returned when the file has a header and nothing else
	ErrNoDataRows = errors.New("import file contains no data rows")

	// ErrTooManyRows is returned when the file exceeds the row limit
	ErrTooManyRows = errors.New("import file exceeds maximum row count")

	// ErrUnsupportedFormat is returned for file types other than CSV and XLSX
	ErrUnsupportedFormat = errors.New("unsupported import file format")
)

// RowError represents an error in a specific row
type RowError struct {
	Row     int    `json:"row"`
	Kind    string `json:"kind,omitempty"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
	}
}

// ErrorCollection keeps the first maxErrors row errors and counts the rest
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
