package importapp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/lotledger/internal/application/audit"
	appcatalog "github.com/erp/lotledger/internal/application/catalog"
	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/application/receiving"
	"github.com/erp/lotledger/internal/domain/bulk"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/cache"
	csvimport "github.com/erp/lotledger/internal/infrastructure/import"
	"github.com/erp/lotledger/internal/infrastructure/lock"
	"github.com/erp/lotledger/internal/infrastructure/persistence/memory"
)

type fixture struct {
	reconciler *Reconciler
	ledger     *appledger.Ledger
	catalog    *appcatalog.Service
	runs       *memory.ImportRunRepository
	keys       *cache.MemoryKeyStore
}

func newFixture(t *testing.T, withKeys bool, cfg Config) *fixture {
	t.Helper()
	logger := zap.NewNop()
	l := appledger.NewLedger(memory.NewLedgerStore(), lock.NewLocalManager(time.Second, logger), logger)
	cat := appcatalog.NewService(memory.NewSkuRepository(), memory.NewNoteRepository(), l, logger)
	f := &fixture{ledger: l, catalog: cat, runs: memory.NewImportRunRepository()}

	deps := Dependencies{
		Catalog:   cat,
		Receiving: receiving.NewService(l, logger),
		Audit:     audit.NewService(l, logger),
		Runs:      f.runs,
	}
	if withKeys {
		f.keys = cache.NewMemoryKeyStore(time.Minute)
		t.Cleanup(func() { _ = f.keys.Close() })
		deps.Keys = f.keys
	}
	f.reconciler = NewReconciler(deps, cfg, logger)
	return f
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func mixedBatch() Batch {
	return Batch{
		ID:     "batch-1",
		Source: bulk.ImportSourceJSON,
		Rows: []Row{
			{Kind: KindProduct, SkuCode: "SKU-1", Name: "Flour", UnitOfMeasure: "kg"},
			{Kind: KindVariance, SkuCode: "SKU-1", Name: "Red", Channel: "web"},
			{Kind: KindNote, SubjectID: "CLIENT-9", Text: "prefers morning delivery", Author: "ops"},
			{Kind: KindOpeningBalance, SkuCode: "SKU-1", LotNumber: "L1", Quantity: dec("10"), UnitCost: dec("2")},
			{Kind: KindPurchaseReceipt, PurchaseOrderID: "PO-1", LineItemID: "1", SkuCode: "SKU-1", LotNumber: "L1", Quantity: dec("10"), UnitCost: dec("4"), Actor: "dock"},
			{Kind: KindAdjustment, SkuCode: "SKU-1", LotNumber: "L1", Delta: dec("-2"), Reason: "cycle count", Author: "auditor"},
			{Kind: KindOpeningBalance, SkuCode: "SKU-1", LotNumber: "L2"},
			{Kind: "transfer", SkuCode: "SKU-1"},
		},
	}
}

func TestReconciler_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("applies valid rows and skips invalid ones", func(t *testing.T) {
		f := newFixture(t, true, Config{})
		summary, err := f.reconciler.Run(ctx, mixedBatch())
		require.NoError(t, err)

		assert.Equal(t, 8, summary.TotalRows)
		assert.Equal(t, 6, summary.Processed)
		assert.Equal(t, 2, summary.Skipped)
		assert.Equal(t, 0, summary.Duplicates)
		assert.Equal(t, bulk.ImportStatusCompleted, summary.Status)

		require.Len(t, summary.Errors, 2)
		assert.Equal(t, 7, summary.Errors[0].Row)
		assert.Equal(t, "quantity", summary.Errors[0].Column)
		assert.Equal(t, shared.CodeValidation, summary.Errors[0].Code)
		assert.Equal(t, "kind", summary.Errors[1].Column)

		lot, err := f.ledger.GetLotState(ctx, "SKU-1", "L1")
		require.NoError(t, err)
		assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(18)), lot.Quantity.String())
		assert.True(t, lot.UnitCost.Equal(decimal.NewFromInt(3)), lot.UnitCost.String())

		sku, err := f.catalog.GetSku(ctx, "SKU-1")
		require.NoError(t, err)
		assert.Len(t, sku.Variances, 1)

		notes, err := f.catalog.ListNotes(ctx, "CLIENT-9")
		require.NoError(t, err)
		assert.Len(t, notes, 1)
	})

	t.Run("second run reports every valid row as duplicate", func(t *testing.T) {
		for _, withKeys := range []bool{true, false} {
			f := newFixture(t, withKeys, Config{})
			_, err := f.reconciler.Run(ctx, mixedBatch())
			require.NoError(t, err)

			summary, err := f.reconciler.Run(ctx, mixedBatch())
			require.NoError(t, err)
			assert.Equal(t, 0, summary.Processed, "withKeys=%v", withKeys)
			assert.Equal(t, 6, summary.Duplicates, "withKeys=%v", withKeys)
			assert.Equal(t, 2, summary.Skipped, "withKeys=%v", withKeys)

			lot, err := f.ledger.GetLotState(ctx, "SKU-1", "L1")
			require.NoError(t, err)
			assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(18)))
			events, err := f.ledger.Replay(ctx, "SKU-1", "L1")
			require.NoError(t, err)
			assert.Len(t, events, 3)

			notes, err := f.catalog.ListNotes(ctx, "CLIENT-9")
			require.NoError(t, err)
			assert.Len(t, notes, 1)
		}
	})

	t.Run("processor rejection keeps its code", func(t *testing.T) {
		f := newFixture(t, false, Config{})
		summary, err := f.reconciler.Run(ctx, Batch{Rows: []Row{
			{Kind: KindOpeningBalance, SkuCode: "SKU-1", LotNumber: "L1", Quantity: dec("1")},
			{Kind: KindAdjustment, SkuCode: "SKU-1", LotNumber: "L1", Delta: dec("-5"), Reason: "shrink", Author: "a"},
			{Kind: KindVariance, SkuCode: "NOPE", Name: "Blue"},
		}})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Processed)
		require.Len(t, summary.Errors, 2)
		assert.Equal(t, shared.CodeValidation, summary.Errors[0].Code)
		assert.Equal(t, string(KindAdjustment), summary.Errors[0].Kind)
		assert.Equal(t, shared.CodeNotFound, summary.Errors[1].Code)
	})

	t.Run("every row rejected fails the run", func(t *testing.T) {
		f := newFixture(t, false, Config{})
		summary, err := f.reconciler.Run(ctx, Batch{ID: "bad", Rows: []Row{{Kind: KindNote}}})
		require.NoError(t, err)
		assert.Equal(t, bulk.ImportStatusFailed, summary.Status)

		runs, err := f.runs.FindByBatch(ctx, "bad")
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, 1, runs[0].SkippedRows)
		assert.Len(t, runs[0].ErrorDetails, 2)
	})

	t.Run("error list is capped", func(t *testing.T) {
		f := newFixture(t, false, Config{MaxErrors: 1})
		summary, err := f.reconciler.Run(ctx, Batch{Rows: []Row{{Kind: "x"}, {Kind: "y"}, {Kind: "z"}}})
		require.NoError(t, err)
		assert.Len(t, summary.Errors, 1)
		assert.Equal(t, 3, summary.TotalErrors)
		assert.True(t, summary.IsTruncated)
	})

	t.Run("history is recorded", func(t *testing.T) {
		f := newFixture(t, false, Config{})
		summary, err := f.reconciler.Run(ctx, mixedBatch())
		require.NoError(t, err)

		run, err := f.runs.FindByID(ctx, summary.RunID)
		require.NoError(t, err)
		assert.Equal(t, "batch-1", run.BatchID)
		assert.Equal(t, 6, run.ProcessedRows)
		assert.Equal(t, 2, run.SkippedRows)
		assert.NotNil(t, run.CompletedAt)
	})
}

// cancellingCatalog cancels the run's context after the first sku it registers
type cancellingCatalog struct {
	*appcatalog.Service
	cancel context.CancelFunc
}

func (c cancellingCatalog) RegisterSku(ctx context.Context, req appcatalog.RegisterSkuRequest) (*appcatalog.SkuResponse, bool, error) {
	defer c.cancel()
	return c.Service.RegisterSku(ctx, req)
}

func TestReconciler_Cancellation(t *testing.T) {
	f := newFixture(t, false, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.reconciler.deps.Catalog = cancellingCatalog{Service: f.catalog, cancel: cancel}

	summary, err := f.reconciler.Run(ctx, mixedBatch())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, bulk.ImportStatusCancelled, summary.Status)

	// the registered sku stays registered
	_, err = f.catalog.GetSku(context.Background(), "SKU-1")
	require.NoError(t, err)

	_, err = f.ledger.GetLotState(context.Background(), "SKU-1", "L1")
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))

	run, err := f.runs.FindByID(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, bulk.ImportStatusCancelled, run.Status)
}

func TestReconciler_FromCSV(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, Config{})

	csv := strings.Join([]string{
		"Kind,SKU,Lot Number,Quantity,Unit Cost,Expires At",
		"opening_balance,SKU-1,L1,5,1.50,2030-01-01",
		"opening_balance,SKU-1,L2,five,1.50,",
		"opening_balance,SKU-1,L3,,1.50,",
	}, "\n")
	rows, err := ReadRows(csvimport.FormatCSV, strings.NewReader(csv), 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	summary, err := f.reconciler.Run(ctx, Batch{Source: bulk.ImportSourceCSV, FileName: "opening.csv", Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 2, summary.Skipped)

	require.Len(t, summary.Errors, 2)
	assert.Equal(t, 3, summary.Errors[0].Row)
	assert.Equal(t, csvimport.ErrCodeImportInvalidType, summary.Errors[0].Code)
	assert.Equal(t, 4, summary.Errors[1].Row)
	assert.Equal(t, "quantity", summary.Errors[1].Column)

	lot, err := f.ledger.GetLotState(ctx, "SKU-1", "L1")
	require.NoError(t, err)
	require.NotNil(t, lot.ExpiresAt)
	assert.Equal(t, 2030, lot.ExpiresAt.Year())
}

func TestReconciler_rowKey(t *testing.T) {
	r := NewReconciler(Dependencies{}, Config{}, nil)

	balance := Row{Kind: KindOpeningBalance, SkuCode: "SKU-1", LotNumber: "L1"}
	assert.Equal(t, "opening:SKU-1:L1", r.rowKey(balance))

	receipt := Row{Kind: KindPurchaseReceipt, PurchaseOrderID: "PO-1", LineItemID: "3", IdempotencyKey: "ignored"}
	assert.Equal(t, "PO-1:3", r.rowKey(receipt))

	variance := Row{Kind: KindVariance, SkuCode: "SKU-1", Name: "Red", Channel: "Web"}
	same := Row{Kind: KindVariance, SkuCode: "SKU-1", Name: "red", Channel: "web"}
	assert.Equal(t, r.rowKey(variance), r.rowKey(same))

	adj := Row{Kind: KindAdjustment, SkuCode: "SKU-1", LotNumber: "L1", Delta: dec("-1"), Reason: "count"}
	assert.Equal(t, r.rowKey(adj), r.rowKey(adj))
	adj.AdjustmentID = "ADJ-7"
	assert.Equal(t, "ADJ-7", r.rowKey(adj))
}
