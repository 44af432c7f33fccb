package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obistack/occurrence-go/internal/conf"
)

// createStore initializes a temporary SQLite state store for testing.
func createStore(t *testing.T) Interface {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/test.db"

	store := New(settings)
	require.NotNil(t, store)

	require.NoError(t, store.Open(), "Failed to open database")

	t.Cleanup(func() {
		assert.NoError(t, store.Close(), "Failed to close state store")
	})

	return store
}

func TestStatePutGet(t *testing.T) {
	store := createStore(t)

	require.NoError(t, store.Put("annotations", []byte(`{"a":"accept"}`)))

	value, found, err := store.Get("annotations")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"a":"accept"}`, string(value))
}

func TestStateGetMissingKey(t *testing.T) {
	store := createStore(t)

	_, found, err := store.Get("nothing-here")
	require.NoError(t, err)
	assert.False(t, found, "missing key must not be an error")
}

func TestStatePutOverwrites(t *testing.T) {
	store := createStore(t)

	require.NoError(t, store.Put("k", []byte("first")))
	require.NoError(t, store.Put("k", []byte("second")))

	value, found, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", string(value))
}

func TestStateDelete(t *testing.T) {
	store := createStore(t)

	require.NoError(t, store.Put("k", []byte("v")))
	require.NoError(t, store.Delete("k"))

	_, found, err := store.Get("k")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting a missing key is a no-op.
	assert.NoError(t, store.Delete("k"))
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/test.db"

	store := New(settings)
	require.NoError(t, store.Open())
	require.NoError(t, store.Put("annotations", []byte(`{"k":"reject"}`)))
	require.NoError(t, store.Close())

	reopened := New(settings)
	require.NoError(t, reopened.Open())
	defer func() { assert.NoError(t, reopened.Close()) }()

	value, found, err := reopened.Get("annotations")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"k":"reject"}`, string(value))
}

func TestNewSelectsBackend(t *testing.T) {
	settings := &conf.Settings{}
	settings.Output.MySQL.Enabled = true

	store := New(settings)
	_, ok := store.(*MySQLStore)
	assert.True(t, ok, "MySQL settings should select the MySQL store")

	settings.Output.SQLite.Enabled = true
	store = New(settings)
	_, ok = store.(*SQLiteStore)
	assert.True(t, ok, "SQLite takes precedence when enabled")
}
