package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/lotledger/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add lot index", "add_lot_index"},
		{"Add-Lot-Index", "add_lot_index"},
		{"add__lot__index", "add_lot_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add lot index", "Index lots by expiry")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.True(t, strings.HasSuffix(first.UpPath, "000001_add_lot_index.up.sql"))
	assert.True(t, strings.HasSuffix(first.DownPath, "000001_add_lot_index.down.sql"))

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Index lots by expiry")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	second, err := CreateMigration(dir, "notes author", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	t.Run("creates missing directory", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "nested", "migrations")
		_, err := CreateMigration(nested, "init", "")
		require.NoError(t, err)
		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects unusable names", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "!!!", "")
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"000002_add_notes.up.sql",
		"000002_add_notes.down.sql",
		"000001_init.up.sql",
		"000001_init.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0755))

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_notes"}, names)

	names, err = ListMigrations(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrations(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(migrations.FS, down)
		assert.NoError(t, err, "missing rollback for %s", up)
	}

	schema, err := fs.ReadFile(migrations.FS, "000001_init_ledger.up.sql")
	require.NoError(t, err)
	for _, idx := range []string{"idx_ledger_events_idempotency_key", "idx_lot_sku_number", "idx_notes_idempotency_key"} {
		assert.Contains(t, string(schema), idx)
	}
}
