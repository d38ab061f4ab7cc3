package csvimport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads header-keyed rows from one sheet of a workbook
type XLSXReader struct {
	file    *excelize.File
	sheet   string
	maxRows int
}

// XLSXOption configures an XLSXReader
type XLSXOption func(*XLSXReader)

// WithSheet selects the sheet to read; the first sheet is used otherwise
func WithSheet(name string) XLSXOption {
	return func(x *XLSXReader) {
		x.sheet = name
	}
}

// WithXLSXMaxRows limits the number of data rows; zero means unlimited
func WithXLSXMaxRows(n int) XLSXOption {
	return func(x *XLSXReader) {
		x.maxRows = n
	}
}

// NewXLSXReader opens a workbook from r
func NewXLSXReader(r io.Reader, opts ...XLSXOption) (*XLSXReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	x := &XLSXReader{file: f}
	for _, opt := range opts {
		opt(x)
	}
	if x.sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			_ = f.Close()
			return nil, ErrEmptyFile
		}
		x.sheet = sheets[0]
	}
	return x, nil
}

// ReadAllRows returns every non-empty data row below the header row.
// Line numbers match the spreadsheet's row numbers.
func (x *XLSXReader) ReadAllRows() ([]*Row, error) {
	records, err := x.file.GetRows(x.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", x.sheet, err)
	}
	if len(records) == 0 {
		return nil, ErrMissingHeader
	}

	headers := make([]string, len(records[0]))
	nonEmpty := 0
	for i, h := range records[0] {
		headers[i] = NormalizeHeader(h)
		if headers[i] != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return nil, ErrMissingHeader
	}

	rows := make([]*Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row := newRow(i+2, headers, record)
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
		if x.maxRows > 0 && len(rows) > x.maxRows {
			return nil, ErrTooManyRows
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}
	return rows, nil
}

// Close releases the workbook
func (x *XLSXReader) Close() error {
	return x.file.Close()
}
