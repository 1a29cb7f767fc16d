package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDocumentStore_SaveTempAndRead(t *testing.T) {
	store, err := NewLocalDocumentStore(t.TempDir(), "tmp/uploads")
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()
	data := []byte("%PDF-1.4 fake invoice")

	key, err := store.SaveTemp(ctx, tenantID, "invoice.pdf", data)
	require.NoError(t, err)
	assert.Contains(t, key, "tmp/uploads/"+tenantID.String())
	assert.Contains(t, key, "invoice.pdf")

	got, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalDocumentStore_SaveTemp_UniqueKeys(t *testing.T) {
	store, err := NewLocalDocumentStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()

	key1, err := store.SaveTemp(ctx, tenantID, "invoice.pdf", []byte("first"))
	require.NoError(t, err)
	key2, err := store.SaveTemp(ctx, tenantID, "invoice.pdf", []byte("second"))
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2, "same filename must not collide")

	got, err := store.Read(ctx, key1)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestLocalDocumentStore_Promote(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalDocumentStore(dir, "tmp/uploads")
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()
	data := []byte("scan bytes")

	tempKey, err := store.SaveTemp(ctx, tenantID, "scan.jpg", data)
	require.NoError(t, err)

	durableKey := "invoices/" + tenantID.String() + "/medsupply/2026-08-10/inv-42-scan.jpg"
	require.NoError(t, store.Promote(ctx, tempKey, durableKey))

	got, err := store.Read(ctx, durableKey)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Temp copy is gone after promotion
	_, err = store.Read(ctx, tempKey)
	require.Error(t, err)

	// Key maps onto the expected path under the root
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(durableKey)))
	require.NoError(t, err)
}

func TestLocalDocumentStore_Promote_MissingTemp(t *testing.T) {
	store, err := NewLocalDocumentStore(t.TempDir(), "")
	require.NoError(t, err)

	err = store.Promote(context.Background(), "tmp/uploads/nope", "invoices/nope")
	require.Error(t, err)
}

func TestLocalDocumentStore_Delete(t *testing.T) {
	store, err := NewLocalDocumentStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx := context.Background()
	key, err := store.SaveTemp(ctx, uuid.New(), "invoice.pdf", []byte("data"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Read(ctx, key)
	require.Error(t, err)

	t.Run("missing key is not an error", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "invoices/does-not-exist.pdf"))
	})
}

func TestLocalDocumentStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalDocumentStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.Read(ctx, "../outside")
	require.Error(t, err)

	_, err = store.Read(ctx, "/etc/passwd")
	require.Error(t, err)

	_, err = store.Read(ctx, "")
	require.Error(t, err)
}
