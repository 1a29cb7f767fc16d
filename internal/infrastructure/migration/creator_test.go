package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"create suppliers table", "create_suppliers_table"},
		{"Create-Ledger-Entries", "create_ledger_entries"},
		{"ADD_STOCK_BATCHES", "add_stock_batches"},
		{"double__underscore", "double_underscore"},
		{"Mixed Case 99", "mixed_case_99"},
		{"   padded   ", "padded"},
		{"drop!@#chars", "dropchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.input), "input %q", tt.input)
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "create invoice uploads", "Uploaded invoice documents")
	require.NoError(t, err)

	// Version prefix is a sortable 14-digit timestamp
	assert.Len(t, mf.Version, 14)
	assert.True(t, strings.HasSuffix(mf.UpPath, "_create_invoice_uploads.up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, "_create_invoice_uploads.down.sql"))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: create invoice uploads")
	assert.Contains(t, string(up), "-- Description: Uploaded invoice documents")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")
	assert.Contains(t, string(down), "Rollback for Uploaded invoice documents")
}

func TestCreateMigrationMakesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "db", "migrations")

	_, err := CreateMigration(nested, "seed accounts", "seed")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"000001_create_suppliers.up.sql",
		"000001_create_suppliers.down.sql",
		"000002_create_ledger.up.sql",
		"000002_create_ledger.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- sql"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.up.sql"), 0755))

	migrations, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_suppliers", "000002_create_ledger"}, migrations)
}

func TestListMigrationsMissingDirectory(t *testing.T) {
	migrations, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}
