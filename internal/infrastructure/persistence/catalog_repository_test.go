package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/lotledger/internal/domain/bulk"
	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSkuRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSkuRepository(newTestDB(t))

	sku, err := catalog.NewSku("SKU-1", "Widget", "pcs")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, sku))

	t.Run("duplicate code", func(t *testing.T) {
		again, err := catalog.NewSku("SKU-1", "Other", "")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, again), shared.ErrAlreadyExists)
	})

	t.Run("save adds variances with version check", func(t *testing.T) {
		stored, err := repo.FindByCode(ctx, "SKU-1")
		require.NoError(t, err)

		_, added, err := stored.AddVariance("Red", "web", "var-red")
		require.NoError(t, err)
		require.True(t, added)
		require.NoError(t, repo.Save(ctx, stored))

		reloaded, err := repo.FindByCode(ctx, "SKU-1")
		require.NoError(t, err)
		require.Len(t, reloaded.Variances, 1)
		assert.Equal(t, "Red", reloaded.Variances[0].Name)
		assert.Equal(t, 2, reloaded.Version)

		// a copy that missed the first save
		_, _, err = stored.AddVariance("Blue", "web", "var-blue")
		require.NoError(t, err)
		stale := *stored
		stale.Version = 2
		assert.ErrorIs(t, repo.Save(ctx, &stale), shared.ErrConcurrencyConflict)
	})

	t.Run("list and delete", func(t *testing.T) {
		other, err := catalog.NewSku("SKU-0", "", "")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, other))

		skus, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, skus, 2)
		assert.Equal(t, "SKU-0", skus[0].Code)

		require.NoError(t, repo.Delete(ctx, "SKU-1"))
		_, err = repo.FindByCode(ctx, "SKU-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "SKU-1"), shared.ErrNotFound)
	})
}

func TestGormNoteRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormNoteRepository(newTestDB(t))

	note, err := catalog.NewNote("client-7", "Prefers morning delivery", "ops", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "note-1")
	require.NoError(t, err)

	inserted, err := repo.Append(ctx, note)
	require.NoError(t, err)
	assert.True(t, inserted)

	replay, err := catalog.NewNote("client-7", "Prefers morning delivery", "ops", note.CreatedAt, "note-1")
	require.NoError(t, err)
	inserted, err = repo.Append(ctx, replay)
	require.NoError(t, err)
	assert.False(t, inserted)

	notes, err := repo.ListBySubject(ctx, "client-7")
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestGormImportRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportRunRepository(newTestDB(t))

	run, err := bulk.NewImportRun("batch-1", bulk.ImportSourceCSV, "rows.csv", "alice")
	require.NoError(t, err)
	require.NoError(t, run.StartProcessing(3))
	require.NoError(t, run.Complete(2, 0, 1, []bulk.ImportErrorDetail{{Row: 3, Kind: "adjustment", Code: shared.CodeValidation, Message: "reason is required"}}))
	require.NoError(t, repo.Save(ctx, run))

	found, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.ImportStatusCompleted, found.Status)
	require.Len(t, found.ErrorDetails, 1)
	assert.Equal(t, 3, found.ErrorDetails[0].Row)

	runs, err := repo.FindByBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
