package importapp

import (
	"io"
	"strings"

	"github.com/shopspring/decimal"

	csvimport "github.com/erp/lotledger/internal/infrastructure/import"
)

// FromRecord converts a spreadsheet row into an import row. Cells that do
// not parse leave the row marked invalid so the reconciler reports it.
func FromRecord(rec *csvimport.Row) Row {
	row := Row{
		Line:            rec.LineNumber,
		Kind:            Kind(strings.ToLower(rec.Get("kind"))),
		IdempotencyKey:  rec.Get("idempotency_key"),
		SkuCode:         rec.Get("sku"),
		LotNumber:       rec.Get("lot_number"),
		Name:            rec.Get("name"),
		Channel:         rec.Get("channel"),
		UnitOfMeasure:   rec.Get("unit_of_measure"),
		SubjectID:       rec.Get("subject_id"),
		Text:            rec.Get("text"),
		Author:          rec.Get("author"),
		PurchaseOrderID: rec.Get("purchase_order_id"),
		LineItemID:      rec.Get("line_item_id"),
		AdjustmentID:    rec.Get("adjustment_id"),
		Reason:          rec.Get("reason"),
		Actor:           rec.Get("actor"),
	}

	var err error
	setDecimal := func(dst **decimal.Decimal, col string) {
		if err != nil {
			return
		}
		*dst, err = rec.Decimal(col)
	}
	setDecimal(&row.Quantity, "quantity")
	setDecimal(&row.UnitCost, "unit_cost")
	setDecimal(&row.Delta, "delta")

	if err == nil {
		row.CreatedAt, err = rec.Time("created_at")
	}
	if err == nil {
		row.ExpiresAt, err = rec.Time("expires_at")
	}
	if err == nil {
		row.OccurredAt, err = rec.Time("occurred_at")
	}
	row.parseErr = err
	return row
}

// RowsFromRecords converts spreadsheet rows in order
func RowsFromRecords(recs []*csvimport.Row) []Row {
	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, FromRecord(rec))
	}
	return rows
}

// ReadRows reads a CSV or XLSX file into import rows
func ReadRows(format csvimport.Format, r io.Reader, maxRows int) ([]Row, error) {
	recs, err := csvimport.ReadRows(format, r, maxRows)
	if err != nil {
		return nil, err
	}
	return RowsFromRecords(recs), nil
}
