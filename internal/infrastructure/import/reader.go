package csvimport

import (
	"io"
	"path/filepath"
	"strings"
)

// Format is the file type of an import
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from a file name's extension
func DetectFormat(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// ReadRows reads every data row of a CSV or XLSX file
func ReadRows(format Format, r io.Reader, maxRows int) ([]*Row, error) {
	switch format {
	case FormatCSV:
		p, err := NewCSVParser(r, WithMaxRows(maxRows))
		if err != nil {
			return nil, err
		}
		return p.ReadAllRows()
	case FormatXLSX:
		x, err := NewXLSXReader(r, WithXLSXMaxRows(maxRows))
		if err != nil {
			return nil, err
		}
		defer x.Close()
		return x.ReadAllRows()
	}
	return nil, ErrUnsupportedFormat
}
