package importapp

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Kind identifies what an import row records
type Kind string

const (
	KindVariance        Kind = "variance"
	KindNote            Kind = "note"
	KindProduct         Kind = "product"
	KindOpeningBalance  Kind = "opening_balance"
	KindPurchaseReceipt Kind = "purchase_receipt"
	KindAdjustment      Kind = "adjustment"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	_, ok := requiredFields[k]
	return ok
}

// Row is one line of a heterogeneous import batch. Which fields are
// required depends on Kind.
type Row struct {
	Line            int              `json:"line,omitempty"`
	Kind            Kind             `json:"kind"`
	IdempotencyKey  string           `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
	SkuCode         string           `json:"sku,omitempty" validate:"required,max=64"`
	LotNumber       string           `json:"lot_number,omitempty" validate:"required,max=64"`
	Name            string           `json:"name,omitempty" validate:"required,max=200"`
	Channel         string           `json:"channel,omitempty" validate:"omitempty,max=100"`
	UnitOfMeasure   string           `json:"unit_of_measure,omitempty" validate:"omitempty,max=20"`
	SubjectID       string           `json:"subject_id,omitempty" validate:"required,max=128"`
	Text            string           `json:"text,omitempty" validate:"required"`
	Author          string           `json:"author,omitempty" validate:"omitempty,max=128"`
	CreatedAt       *time.Time       `json:"created_at,omitempty"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty" validate:"required"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty" validate:"required"`
	Delta           *decimal.Decimal `json:"delta,omitempty" validate:"required"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	PurchaseOrderID string           `json:"purchase_order_id,omitempty" validate:"required,max=128"`
	LineItemID      string           `json:"line_item_id,omitempty" validate:"required,max=128"`
	AdjustmentID    string           `json:"adjustment_id,omitempty" validate:"omitempty,max=128"`
	Reason          string           `json:"reason,omitempty" validate:"required,max=500"`
	Actor           string           `json:"actor,omitempty" validate:"omitempty,max=128"`
	OccurredAt      *time.Time       `json:"occurred_at,omitempty"`

	// set when the source record could not be converted
	parseErr error
}

// requiredFields lists the struct fields validated for each kind. Fields
// outside a kind's list are ignored for that kind.
var requiredFields = map[Kind][]string{
	KindVariance:        {"IdempotencyKey", "SkuCode", "Name", "Channel"},
	KindNote:            {"IdempotencyKey", "SubjectID", "Text", "Author"},
	KindProduct:         {"SkuCode", "UnitOfMeasure"},
	KindOpeningBalance:  {"IdempotencyKey", "SkuCode", "LotNumber", "Quantity", "Actor"},
	KindPurchaseReceipt: {"PurchaseOrderID", "LineItemID", "SkuCode", "LotNumber", "Quantity", "UnitCost", "Actor"},
	KindAdjustment:      {"AdjustmentID", "SkuCode", "LotNumber", "Delta", "Reason", "Author"},
}

var (
	rowValidatorOnce sync.Once
	rowValidator     *validator.Validate
)

// validate returns the row validator, reporting fields by their json names
func validate() *validator.Validate {
	rowValidatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		rowValidator = v
	})
	return rowValidator
}

func timeOr(t *time.Time, def time.Time) time.Time {
	if t == nil || t.IsZero() {
		return def
	}
	return t.UTC()
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
