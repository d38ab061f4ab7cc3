package ledger

// SourceType identifies the kind of document that produced a ledger event
type SourceType string

const (
	// SourceTypeReceiving is stock arriving against a purchase order line
	SourceTypeReceiving SourceType = "receiving"
	// SourceTypeManufacturingOutput is finished goods produced by a manufacturing order
	SourceTypeManufacturingOutput SourceType = "manufacturing-output"
	// SourceTypeManufacturingConsumption is a BOM input consumed by a manufacturing order
	SourceTypeManufacturingConsumption SourceType = "manufacturing-consumption"
	// SourceTypeShipment is stock leaving against a sale order line
	SourceTypeShipment SourceType = "shipment"
	// SourceTypeAuditAdjustment is a signed correction from a stock count
	SourceTypeAuditAdjustment SourceType = "audit-adjustment"
	// SourceTypeOpeningBalance seeds a lot from an imported balance
	SourceTypeOpeningBalance SourceType = "opening-balance"
)

// String returns the string representation of SourceType
func (t SourceType) String() string {
	return string(t)
}

// IsValid returns true if the source type is valid
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeReceiving,
		SourceTypeManufacturingOutput,
		SourceTypeManufacturingConsumption,
		SourceTypeShipment,
		SourceTypeAuditAdjustment,
		SourceTypeOpeningBalance:
		return true
	}
	return false
}

// IsCredit returns true if events of this type may only add stock
func (t SourceType) IsCredit() bool {
	switch t {
	case SourceTypeReceiving, SourceTypeManufacturingOutput, SourceTypeOpeningBalance:
		return true
	}
	return false
}

// IsDebit returns true if events of this type may only remove stock
func (t SourceType) IsDebit() bool {
	switch t {
	case SourceTypeManufacturingConsumption, SourceTypeShipment:
		return true
	}
	return false
}

// CreatesLot returns true if an event of this type may bring a new lot into existence
func (t SourceType) CreatesLot() bool {
	return t.IsCredit()
}

// AllSourceTypes returns all valid source types
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeReceiving,
		SourceTypeManufacturingOutput,
		SourceTypeManufacturingConsumption,
		SourceTypeShipment,
		SourceTypeAuditAdjustment,
		SourceTypeOpeningBalance,
	}
}
