package csvimport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, cells := range rows {
		for c, v := range cells {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestXLSXReader(t *testing.T) {
	t.Run("Reads first sheet", func(t *testing.T) {
		buf := workbook(t, [][]string{
			{"Kind", "SKU", "Quantity"},
			{"receipt", "SKU-1", "5"},
			{},
			{"receipt", "SKU-2", "3"},
		})
		x, err := NewXLSXReader(buf)
		require.NoError(t, err)
		defer x.Close()

		rows, err := x.ReadAllRows()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "SKU-1", rows[0].Get("sku"))
		assert.Equal(t, 2, rows[0].LineNumber)
		assert.Equal(t, 4, rows[1].LineNumber)
	})

	t.Run("Header only", func(t *testing.T) {
		x, err := NewXLSXReader(workbook(t, [][]string{{"kind"}}))
		require.NoError(t, err)
		defer x.Close()
		_, err = x.ReadAllRows()
		assert.ErrorIs(t, err, ErrNoDataRows)
	})

	t.Run("Unknown sheet", func(t *testing.T) {
		x, err := NewXLSXReader(workbook(t, [][]string{{"kind"}, {"a"}}), WithSheet("Missing"))
		require.NoError(t, err)
		defer x.Close()
		_, err = x.ReadAllRows()
		assert.Error(t, err)
	})
}

func TestReadRows(t *testing.T) {
	format, err := DetectFormat("opening.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	_, err = DetectFormat("opening.json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	rows, err := ReadRows(FormatCSV, strings.NewReader("kind\nnote"), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = ReadRows(FormatXLSX, workbook(t, [][]string{{"kind"}, {"note"}, {"note"}}), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = ReadRows(Format("ods"), strings.NewReader(""), 0)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
