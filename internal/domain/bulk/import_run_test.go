package bulk

import (
	"testing"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status ImportStatus
		want   bool
	}{
		{"pending", ImportStatusPending, false},
		{"processing", ImportStatusProcessing, false},
		{"completed", ImportStatusCompleted, true},
		{"failed", ImportStatusFailed, true},
		{"cancelled", ImportStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
			assert.True(t, tt.status.IsValid())
		})
	}
}

func TestNewImportRun(t *testing.T) {
	t.Run("creates pending run", func(t *testing.T) {
		run, err := NewImportRun("batch-1", ImportSourceCSV, "stock.csv", "ops")
		require.NoError(t, err)
		assert.Equal(t, ImportStatusPending, run.Status)
		assert.Empty(t, run.ErrorDetails)
	})

	t.Run("rejects unknown source", func(t *testing.T) {
		_, err := NewImportRun("batch-1", ImportSource("xml"), "", "")
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("rejects empty batch id", func(t *testing.T) {
		_, err := NewImportRun("", ImportSourceJSON, "", "")
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})
}

func TestImportRun_Lifecycle(t *testing.T) {
	t.Run("completes with counts", func(t *testing.T) {
		run, err := NewImportRun("batch-1", ImportSourceJSON, "", "ops")
		require.NoError(t, err)
		require.NoError(t, run.StartProcessing(4))
		assert.NotNil(t, run.StartedAt)

		details := []ImportErrorDetail{{Row: 3, Code: shared.CodeImportRow, Message: "quantity is required"}}
		require.NoError(t, run.Complete(2, 1, 1, details))

		assert.Equal(t, ImportStatusCompleted, run.Status)
		assert.Equal(t, 2, run.ProcessedRows)
		assert.Equal(t, 1, run.DuplicateRows)
		assert.GreaterOrEqual(t, run.Duration().Nanoseconds(), int64(0))

		raw, err := run.ErrorDetailsJSON()
		require.NoError(t, err)

		restored := &ImportRun{}
		require.NoError(t, restored.SetErrorDetailsFromJSON(raw))
		assert.Equal(t, details, restored.ErrorDetails)
	})

	t.Run("all rows rejected fails the run", func(t *testing.T) {
		run, _ := NewImportRun("batch-2", ImportSourceJSON, "", "ops")
		require.NoError(t, run.StartProcessing(1))
		require.NoError(t, run.Complete(0, 0, 1, nil))
		assert.Equal(t, ImportStatusFailed, run.Status)
	})

	t.Run("cannot complete twice", func(t *testing.T) {
		run, _ := NewImportRun("batch-3", ImportSourceJSON, "", "ops")
		require.NoError(t, run.StartProcessing(0))
		require.NoError(t, run.Complete(0, 0, 0, nil))
		assert.True(t, shared.IsCode(run.Complete(0, 0, 0, nil), shared.CodeInvalidState))
		assert.True(t, shared.IsCode(run.Cancel(0, 0, 0), shared.CodeInvalidState))
	})

	t.Run("cancel keeps partial counts", func(t *testing.T) {
		run, _ := NewImportRun("batch-4", ImportSourceXLSX, "book.xlsx", "ops")
		require.NoError(t, run.StartProcessing(10))
		require.NoError(t, run.Cancel(3, 0, 1))
		assert.Equal(t, ImportStatusCancelled, run.Status)
		assert.Equal(t, 3, run.ProcessedRows)
	})
}
