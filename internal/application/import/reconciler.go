package importapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appcatalog "github.com/erp/lotledger/internal/application/catalog"
	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/domain/bulk"
	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	csvimport "github.com/erp/lotledger/internal/infrastructure/import"
)

// CatalogWriter registers SKUs, variances and notes
type CatalogWriter interface {
	RegisterSku(ctx context.Context, req appcatalog.RegisterSkuRequest) (*appcatalog.SkuResponse, bool, error)
	AddVariance(ctx context.Context, skuCode string, req appcatalog.AddVarianceRequest) (*appcatalog.VarianceResponse, bool, error)
	AppendNote(ctx context.Context, req appcatalog.AppendNoteRequest) (*catalog.Note, bool, error)
}

// Receiver books receipts and opening balances
type Receiver interface {
	Receive(ctx context.Context, li trade.PurchaseOrderLineItem) (*appledger.AppendResult, error)
	RecordOpeningBalance(ctx context.Context, b ledger.OpeningBalance) (*appledger.AppendResult, error)
}

// Adjuster posts audit adjustments
type Adjuster interface {
	Adjust(ctx context.Context, adj ledger.AuditAdjustment) (*appledger.AppendResult, error)
}

// Metrics counts import rows by kind and outcome
type Metrics interface {
	ImportRow(ctx context.Context, kind, outcome string)
}

// Dependencies are the processors and stores a Reconciler writes through.
// Keys, Runs and Metrics are optional.
type Dependencies struct {
	Catalog   CatalogWriter
	Receiving Receiver
	Audit     Adjuster
	Keys      shared.IdempotencyStore
	Runs      bulk.ImportRunRepository
	Metrics   Metrics
}

// Config tunes a Reconciler
type Config struct {
	MaxErrors       int
	ProcessedKeyTTL time.Duration
}

// DefaultConfig returns the default reconciler settings
func DefaultConfig() Config {
	return Config{MaxErrors: 100, ProcessedKeyTTL: 24 * time.Hour}
}

// Batch is an ordered set of rows imported together
type Batch struct {
	ID        string
	Source    bulk.ImportSource
	FileName  string
	StartedBy string
	Rows      []Row
}

// Summary reports what a run did with each row
type Summary struct {
	RunID       uuid.UUID            `json:"run_id"`
	BatchID     string               `json:"batch_id"`
	Status      bulk.ImportStatus    `json:"status"`
	TotalRows   int                  `json:"total_rows"`
	Processed   int                  `json:"processed"`
	Skipped     int                  `json:"skipped"`
	Duplicates  int                  `json:"duplicates"`
	Errors      []csvimport.RowError `json:"errors,omitempty"`
	TotalErrors int                  `json:"total_errors,omitempty"`
	IsTruncated bool                 `json:"is_truncated,omitempty"`
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeDuplicate
)

// Reconciler applies import batches row by row. A bad row is recorded and
// skipped; the batch carries on.
type Reconciler struct {
	deps   Dependencies
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewReconciler creates a reconciler
func NewReconciler(deps Dependencies, cfg Config, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = def.MaxErrors
	}
	if cfg.ProcessedKeyTTL <= 0 {
		cfg.ProcessedKeyTTL = def.ProcessedKeyTTL
	}
	return &Reconciler{deps: deps, cfg: cfg, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Run applies every row of the batch in order. When ctx is cancelled no
// further rows are submitted; rows already applied stay applied and the
// summary is returned together with the context error.
func (r *Reconciler) Run(ctx context.Context, batch Batch) (*Summary, error) {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.Source == "" {
		batch.Source = bulk.ImportSourceJSON
	}

	run, err := bulk.NewImportRun(batch.ID, batch.Source, batch.FileName, batch.StartedBy)
	if err != nil {
		return nil, err
	}
	if err := run.StartProcessing(len(batch.Rows)); err != nil {
		return nil, err
	}
	r.saveRun(ctx, run)

	summary := &Summary{RunID: run.ID, BatchID: batch.ID, TotalRows: len(batch.Rows)}
	errs := csvimport.NewErrorCollection(r.cfg.MaxErrors)

	log := r.logger.With(zap.String("batch_id", batch.ID), zap.String("run_id", run.ID.String()))
	log.Info("import started", zap.Int("rows", len(batch.Rows)), zap.String("source", string(batch.Source)))

	var cancelErr error
	for i := range batch.Rows {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}
		row := batch.Rows[i]
		if row.Line == 0 {
			row.Line = i + 1
		}

		res, rowErrs := r.apply(ctx, row)
		if ctxErr := ctx.Err(); ctxErr != nil && len(rowErrs) > 0 {
			// the row was cut short, not rejected
			cancelErr = ctxErr
			break
		}
		if len(rowErrs) > 0 {
			summary.Skipped++
			r.countRow(ctx, row, "skipped")
			for _, e := range rowErrs {
				errs.Add(e)
			}
			log.Debug("import row skipped", zap.Int("line", row.Line), zap.String("kind", string(row.Kind)), zap.String("reason", rowErrs[0].Message))
			continue
		}
		if res == outcomeDuplicate {
			summary.Duplicates++
			r.countRow(ctx, row, "duplicate")
		} else {
			summary.Processed++
			r.countRow(ctx, row, "processed")
		}
	}

	summary.Errors = errs.Errors()
	summary.TotalErrors = errs.TotalCount()
	summary.IsTruncated = errs.IsTruncated()

	if cancelErr != nil {
		_ = run.Cancel(summary.Processed, summary.Duplicates, summary.Skipped)
	} else {
		_ = run.Complete(summary.Processed, summary.Duplicates, summary.Skipped, toErrorDetails(summary.Errors))
	}
	summary.Status = run.Status
	r.saveRun(context.WithoutCancel(ctx), run)

	log.Info("import finished",
		zap.String("status", string(run.Status)),
		zap.Int("processed", summary.Processed),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", run.Duration()),
	)
	return summary, cancelErr
}

func (r *Reconciler) countRow(ctx context.Context, row Row, outcome string) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.ImportRow(ctx, string(row.Kind), outcome)
	}
}

func (r *Reconciler) saveRun(ctx context.Context, run *bulk.ImportRun) {
	if r.deps.Runs == nil {
		return
	}
	if err := r.deps.Runs.Save(ctx, run); err != nil {
		r.logger.Warn("failed to save import run", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}

// apply validates and dispatches one row
func (r *Reconciler) apply(ctx context.Context, row Row) (outcome, []csvimport.RowError) {
	if row.parseErr != nil {
		return 0, []csvimport.RowError{rowErrorFrom(row, row.parseErr)}
	}
	if errs := validateRow(row); len(errs) > 0 {
		return 0, errs
	}

	key := r.rowKey(row)
	fastKey := string(row.Kind) + ":" + key
	if r.deps.Keys != nil {
		seen, err := r.deps.Keys.IsProcessed(ctx, fastKey)
		if err != nil {
			r.logger.Warn("processed-key lookup failed", zap.String("key", fastKey), zap.Error(err))
		} else if seen {
			return outcomeDuplicate, nil
		}
	}

	duplicate, err := r.dispatch(ctx, row, key)
	if err != nil {
		return 0, []csvimport.RowError{rowErrorFrom(row, err)}
	}

	if r.deps.Keys != nil {
		if _, err := r.deps.Keys.MarkProcessed(ctx, fastKey, r.cfg.ProcessedKeyTTL); err != nil {
			r.logger.Warn("failed to remember processed key", zap.String("key", fastKey), zap.Error(err))
		}
	}
	if duplicate {
		return outcomeDuplicate, nil
	}
	return outcomeProcessed, nil
}

// rowKey returns the row's idempotency key, deriving one from its natural
// identity when none was given. Receipts are always keyed by order and line.
func (r *Reconciler) rowKey(row Row) string {
	given := strings.TrimSpace(row.IdempotencyKey)
	switch row.Kind {
	case KindVariance:
		if given != "" {
			return given
		}
		return catalog.VarianceKey(row.SkuCode, row.Name, row.Channel)
	case KindNote:
		if given != "" {
			return given
		}
		return catalog.NoteKey(row.SubjectID, row.Text, timeOr(row.CreatedAt, time.Time{}))
	case KindProduct:
		return catalog.DeriveKey("product", row.SkuCode)
	case KindOpeningBalance:
		return ledger.OpeningBalance{IdempotencyKey: given, SkuCode: row.SkuCode, LotNumber: row.LotNumber}.Key()
	case KindPurchaseReceipt:
		return trade.PurchaseOrderLineItem{PurchaseOrderID: row.PurchaseOrderID, LineItemID: row.LineItemID}.IdempotencyKey()
	case KindAdjustment:
		if id := strings.TrimSpace(row.AdjustmentID); id != "" {
			return id
		}
		if given != "" {
			return given
		}
		occurred := ""
		if row.OccurredAt != nil {
			occurred = row.OccurredAt.UTC().Format(time.RFC3339Nano)
		}
		return catalog.DeriveKey("adjustment", row.SkuCode, row.LotNumber, decimalOrZero(row.Delta).String(), row.Reason, occurred)
	}
	return ""
}

// dispatch hands the row to its processor and reports whether it had
// already been applied
func (r *Reconciler) dispatch(ctx context.Context, row Row, key string) (bool, error) {
	now := r.now()
	switch row.Kind {
	case KindProduct:
		_, created, err := r.deps.Catalog.RegisterSku(ctx, appcatalog.RegisterSkuRequest{
			Code:          row.SkuCode,
			Name:          row.Name,
			UnitOfMeasure: row.UnitOfMeasure,
		})
		return !created, err

	case KindVariance:
		_, added, err := r.deps.Catalog.AddVariance(ctx, row.SkuCode, appcatalog.AddVarianceRequest{
			Name:           row.Name,
			Channel:        row.Channel,
			IdempotencyKey: key,
		})
		return !added, err

	case KindNote:
		_, inserted, err := r.deps.Catalog.AppendNote(ctx, appcatalog.AppendNoteRequest{
			SubjectID:      row.SubjectID,
			Text:           row.Text,
			Author:         row.Author,
			CreatedAt:      timeOr(row.CreatedAt, time.Time{}),
			IdempotencyKey: key,
		})
		return !inserted, err

	case KindOpeningBalance:
		res, err := r.deps.Receiving.RecordOpeningBalance(ctx, ledger.OpeningBalance{
			IdempotencyKey: key,
			SkuCode:        row.SkuCode,
			LotNumber:      row.LotNumber,
			Quantity:       decimalOrZero(row.Quantity),
			UnitCost:       decimalOrZero(row.UnitCost),
			ExpiresAt:      row.ExpiresAt,
			Actor:          row.Actor,
			AsOf:           timeOr(row.OccurredAt, now),
		})
		return duplicateOf(res), err

	case KindPurchaseReceipt:
		res, err := r.deps.Receiving.Receive(ctx, trade.PurchaseOrderLineItem{
			PurchaseOrderID: row.PurchaseOrderID,
			LineItemID:      row.LineItemID,
			SkuCode:         row.SkuCode,
			LotNumber:       row.LotNumber,
			QtyReceived:     decimalOrZero(row.Quantity),
			UnitCost:        decimalOrZero(row.UnitCost),
			ExpiresAt:       row.ExpiresAt,
			ReceivedBy:      row.Actor,
			ReceivedAt:      timeOr(row.OccurredAt, now),
		})
		return duplicateOf(res), err

	case KindAdjustment:
		res, err := r.deps.Audit.Adjust(ctx, ledger.AuditAdjustment{
			AdjustmentID: key,
			SkuCode:      row.SkuCode,
			LotNumber:    row.LotNumber,
			Delta:        decimalOrZero(row.Delta),
			Reason:       row.Reason,
			Author:       row.Author,
			OccurredAt:   timeOr(row.OccurredAt, now),
		})
		return duplicateOf(res), err
	}
	return false, shared.NewValidationError("unknown row kind %q", row.Kind)
}

func duplicateOf(res *appledger.AppendResult) bool {
	return res != nil && res.Duplicate
}

// validateRow checks the fields the row's kind requires
func validateRow(row Row) []csvimport.RowError {
	fields, ok := requiredFields[row.Kind]
	if !ok {
		return []csvimport.RowError{{
			Row:     row.Line,
			Kind:    string(row.Kind),
			Column:  "kind",
			Code:    shared.CodeValidation,
			Message: fmt.Sprintf("unknown row kind %q", row.Kind),
			Value:   string(row.Kind),
		}}
	}

	err := validate().StructPartial(row, fields...)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []csvimport.RowError{rowErrorFrom(row, err)}
	}
	out := make([]csvimport.RowError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, csvimport.RowError{
			Row:     row.Line,
			Kind:    string(row.Kind),
			Column:  fe.Field(),
			Code:    shared.CodeValidation,
			Message: validationMessage(fe),
		})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// rowErrorFrom turns a processing error into a row error, keeping a
// domain error's code
func rowErrorFrom(row Row, err error) csvimport.RowError {
	var re csvimport.RowError
	if errors.As(err, &re) {
		re.Kind = string(row.Kind)
		return re
	}
	code := shared.ErrorCode(err)
	if code == "" {
		code = shared.CodeImportRow
	}
	return csvimport.RowError{
		Row:     row.Line,
		Kind:    string(row.Kind),
		Code:    code,
		Message: err.Error(),
	}
}

func toErrorDetails(errs []csvimport.RowError) []bulk.ImportErrorDetail {
	details := make([]bulk.ImportErrorDetail, len(errs))
	for i, e := range errs {
		details[i] = bulk.ImportErrorDetail{
			Row:     e.Row,
			Kind:    e.Kind,
			Column:  e.Column,
			Code:    e.Code,
			Message: e.Message,
		}
	}
	return details
}
