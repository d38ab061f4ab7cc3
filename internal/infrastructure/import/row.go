package csvimport

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Accepted date layouts for date and timestamp columns
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Row is one data row keyed by normalized header name
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[NormalizeHeader(header)]
}

// GetOrDefault returns the value for a column, or def if it is empty
func (r *Row) GetOrDefault(header, def string) string {
	if v := r.Get(header); v != "" {
		return v
	}
	return def
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Decimal parses the column as a decimal. An empty cell yields nil.
func (r *Row) Decimal(header string) (*decimal.Decimal, error) {
	raw := r.Get(header)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return nil, RowError{
			Row:     r.LineNumber,
			Column:  NormalizeHeader(header),
			Code:    ErrCodeImportInvalidType,
			Message: "expected a decimal number",
			Value:   raw,
		}
	}
	return &d, nil
}

// Time parses the column as a timestamp or date. An empty cell yields nil.
func (r *Row) Time(header string) (*time.Time, error) {
	raw := r.Get(header)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, RowError{
		Row:     r.LineNumber,
		Column:  NormalizeHeader(header),
		Code:    ErrCodeImportInvalidDate,
		Message: fmt.Sprintf("invalid date, expected one of %s", strings.Join(dateLayouts, ", ")),
		Value:   raw,
	}
}

// NormalizeHeader case-folds a header and joins words with underscores.
// Full-width forms from CJK spreadsheets fold to their ASCII equivalents.
func NormalizeHeader(h string) string {
	h = cases.Fold().String(norm.NFKC.String(trimSpaces(h)))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

func newRow(line int, headers, record []string) *Row {
	row := &Row{LineNumber: line, Data: make(map[string]string, len(headers))}
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(record) {
			row.Data[h] = trimSpaces(record[i])
		} else {
			row.Data[h] = ""
		}
	}
	return row
}
