package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mpetrov/cartkeeper/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSQLite(t *testing.T) *SQLiteStore {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.RunMigrations("migrations"))
	return store
}

func TestSQLiteStore_Load_NotFound(t *testing.T) {
	store := setupTestSQLite(t)

	cart, err := store.Load(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()

	cart := domain.Cart{
		{ProductID: "p1", Name: "keyboard", Price: 49.99, Quantity: 2, Stock: 5, Image: "kb.png", VendorID: "v1"},
		{ProductID: "p2", Name: "mouse", Price: 19.99, Quantity: 1, Stock: 3},
	}
	require.NoError(t, store.Save(ctx, "u42", cart))

	got, err := store.Load(ctx, "u42")
	require.NoError(t, err)
	assert.Equal(t, cart, got)
}

func TestSQLiteStore_Save_UpsertsSamePartition(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u42", domain.Cart{{ProductID: "p1", Quantity: 2, Stock: 5}}))
	require.NoError(t, store.Save(ctx, "u42", domain.Cart{{ProductID: "p9", Quantity: 1, Stock: 3}}))

	got, err := store.Load(ctx, "u42")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p9", got[0].ProductID)
}

func TestSQLiteStore_PartitionIsolation(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "guest", domain.Cart{{ProductID: "p1", Quantity: 2, Stock: 2}}))
	require.NoError(t, store.Save(ctx, "u42", domain.Cart{{ProductID: "p9", Quantity: 1, Stock: 3}}))

	gotGuest, err := store.Load(ctx, "guest")
	require.NoError(t, err)
	require.Len(t, gotGuest, 1)
	assert.Equal(t, "p1", gotGuest[0].ProductID)

	gotUser, err := store.Load(ctx, "u42")
	require.NoError(t, err)
	require.Len(t, gotUser, 1)
	assert.Equal(t, "p9", gotUser[0].ProductID)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carts.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.RunMigrations("migrations"))

	ctx := context.Background()
	cart := domain.Cart{{ProductID: "p1", Quantity: 2, Stock: 5}}
	require.NoError(t, store.Save(ctx, "u42", cart))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "u42")
	require.NoError(t, err)
	assert.Equal(t, cart, got)
}
