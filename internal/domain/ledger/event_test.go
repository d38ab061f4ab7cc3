package ledger

import (
	"testing"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validEvent() NewEvent {
	return NewEvent{
		Lot:            NewLotKey("SKU-1", "L-1"),
		Delta:          decimal.NewFromInt(5),
		UnitCost:       decimal.NewFromInt(2),
		SourceType:     SourceTypeReceiving,
		SourceID:       "PO-1",
		IdempotencyKey: "PO-1:1",
	}
}

func TestNewEvent_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *NewEvent)
		ok     bool
	}{
		{"valid receiving", func(e *NewEvent) {}, true},
		{"missing sku", func(e *NewEvent) { e.Lot.SkuCode = "" }, false},
		{"missing lot", func(e *NewEvent) { e.Lot.LotNumber = "" }, false},
		{"unknown source", func(e *NewEvent) { e.SourceType = "gift" }, false},
		{"missing key", func(e *NewEvent) { e.IdempotencyKey = "  " }, false},
		{"zero delta", func(e *NewEvent) { e.Delta = decimal.Zero }, false},
		{"negative receiving", func(e *NewEvent) { e.Delta = decimal.NewFromInt(-1) }, false},
		{"positive shipment", func(e *NewEvent) { e.SourceType = SourceTypeShipment }, false},
		{"negative shipment", func(e *NewEvent) {
			e.SourceType = SourceTypeShipment
			e.Delta = decimal.NewFromInt(-1)
		}, true},
		{"negative adjustment", func(e *NewEvent) {
			e.SourceType = SourceTypeAuditAdjustment
			e.Delta = decimal.NewFromInt(-1)
		}, true},
		{"negative cost", func(e *NewEvent) { e.UnitCost = decimal.NewFromInt(-1) }, false},
		{"four decimal places", func(e *NewEvent) { e.Delta = decimal.RequireFromString("0.0001") }, true},
		{"trailing zeros past four places", func(e *NewEvent) { e.Delta = decimal.RequireFromString("1.50000") }, true},
		{"five decimal places", func(e *NewEvent) { e.Delta = decimal.RequireFromString("1.00001") }, false},
		{"sub-precision debit", func(e *NewEvent) {
			e.SourceType = SourceTypeShipment
			e.Delta = decimal.RequireFromString("-0.00005")
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(&ev)
			err := ev.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, shared.IsCode(err, shared.CodeValidation), "got %v", err)
			}
		})
	}
}

func TestSourceType(t *testing.T) {
	for _, st := range AllSourceTypes() {
		assert.True(t, st.IsValid(), st)
	}
	assert.True(t, SourceTypeOpeningBalance.CreatesLot())
	assert.True(t, SourceTypeManufacturingOutput.CreatesLot())
	assert.False(t, SourceTypeShipment.CreatesLot())
	assert.False(t, SourceTypeAuditAdjustment.CreatesLot())
	assert.False(t, SourceTypeAuditAdjustment.IsCredit())
	assert.False(t, SourceTypeAuditAdjustment.IsDebit())
}

func TestBelongsToOperation(t *testing.T) {
	assert.True(t, BelongsToOperation("MO-1", "MO-1"))
	assert.True(t, BelongsToOperation("MO-1:0:lot", "MO-1"))
	assert.False(t, BelongsToOperation("MO-10:0:lot", "MO-1"))
	assert.Equal(t, "SO-1:2:abc", JoinKey("SO-1", "2", "abc"))
}
