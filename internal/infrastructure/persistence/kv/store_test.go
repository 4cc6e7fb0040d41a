package kv

import (
	"testing"

	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	// An in-memory database exists per connection; cap the pool so
	// every query sees the same one.
	db.SetMaxOpenConns(1)
	require.NoError(t, db.EnsureSchema())
	t.Cleanup(func() { db.Close() })
	return db
}

func testStore(t *testing.T, store Store) {
	t.Helper()

	_, found, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set("token", "abc"))
	value, found, err := store.Get("token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", value)

	// Overwrite.
	require.NoError(t, store.Set("token", "def"))
	value, _, err = store.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "def", value)

	require.NoError(t, store.Remove("token"))
	_, found, err = store.Get("token")
	require.NoError(t, err)
	assert.False(t, found)

	// Removing an absent key is fine.
	require.NoError(t, store.Remove("token"))
}

func TestSQLStore(t *testing.T) {
	testStore(t, NewSQLStore(newTestDB(t)))
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}
