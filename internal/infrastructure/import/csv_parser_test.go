package csvimport

import (
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFkind,sku\nnote,SKU-1"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"kind", "sku"}, parser.Headers())
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.Nil(t, parser)
	})

	t.Run("Invalid encoding", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("kind\n\xff\xfe"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("kind;sku\nnote;SKU-1"), WithDelimiter(';'))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"kind", "sku"}, parser.Headers())
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("Headers are normalized", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("  Kind , Lot Number,unit-cost \nx,y,z"))
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"kind", "lot_number", "unit_cost"}, parser.Headers())
	})

	t.Run("Blank header row", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader(" , \nx,y"))
		assert.ErrorIs(t, parser.ParseHeader(), ErrMissingHeader)
	})
}

func TestReadRow(t *testing.T) {
	parser, _ := NewCSVParser(strings.NewReader("kind,sku,quantity\nreceipt, SKU-1 ,5\nreceipt,SKU-2"))
	require.NoError(t, parser.ParseHeader())

	row, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, "SKU-1", row.Get("SKU"))

	row, err = parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 3, row.LineNumber)
	assert.Equal(t, "", row.Get("quantity"))
	assert.Equal(t, "0", row.GetOrDefault("quantity", "0"))

	_, err = parser.ReadRow()
	assert.Equal(t, io.EOF, err)
}

func TestReadAllRows(t *testing.T) {
	t.Run("Skips empty rows", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("kind,sku\nnote,A\n,\nnote,B\n"))
		rows, err := parser.ReadAllRows()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "B", rows[1].Get("sku"))
		assert.Equal(t, 4, rows[1].LineNumber)
	})

	t.Run("Header only", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("kind,sku\n"))
		_, err := parser.ReadAllRows()
		assert.ErrorIs(t, err, ErrNoDataRows)
	})

	t.Run("Row limit", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("kind\na\nb\nc"), WithMaxRows(2))
		_, err := parser.ReadAllRows()
		assert.ErrorIs(t, err, ErrTooManyRows)
	})
}

func TestRowConversions(t *testing.T) {
	row := newRow(7, []string{"quantity", "unit_cost", "received_at", "bad"}, []string{"1,250.5", "", "2024-03-01", "abc"})

	qty, err := row.Decimal("quantity")
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.RequireFromString("1250.5")))

	cost, err := row.Decimal("unit_cost")
	require.NoError(t, err)
	assert.Nil(t, cost)

	at, err := row.Time("received_at")
	require.NoError(t, err)
	assert.Equal(t, 2024, at.Year())

	_, err = row.Decimal("bad")
	var rowErr RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 7, rowErr.Row)
	assert.Equal(t, ErrCodeImportInvalidType, rowErr.Code)

	_, err = row.Time("bad")
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, ErrCodeImportInvalidDate, rowErr.Code)
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	assert.False(t, ec.HasErrors())
	assert.Equal(t, "no errors", ec.String())

	for i := 1; i <= 3; i++ {
		ec.Add(NewRowError(i, "sku", ErrCodeImportMalformedRow, "bad"))
	}
	assert.Equal(t, 3, ec.TotalCount())
	assert.Len(t, ec.Errors(), 2)
	assert.True(t, ec.IsTruncated())
	assert.Contains(t, ec.String(), "showing first 2")
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Lot Number", "lot_number"},
		{"  unit-cost ", "unit_cost"},
		{"PURCHASE_ORDER_ID", "purchase_order_id"},
		{"ＳＫＵ", "sku"},
		{"Lot　Number", "lot_number"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.in))
		})
	}
}
