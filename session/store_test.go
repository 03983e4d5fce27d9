package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreRoundTrip(t *testing.T, open func(t *testing.T, dir string) Store) {
	dir := t.TempDir()
	store := open(t, dir)

	loaded, err := store.Load("session:" + identityA)
	require.NoError(t, err)
	assert.Nil(t, loaded, "absent locator loads as nil")

	sc := &Context{
		Identity:       identityA,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		LastAccessedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save("session:"+identityA, sc))

	loaded, err = store.Load("session:" + identityA)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, identityA, loaded.Identity)
	require.NoError(t, store.Close())

	// The context survives a restart of the store.
	store = open(t, dir)
	defer store.Close()
	loaded, err = store.Load("session:" + identityA)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, identityA, loaded.Identity)
	assert.Equal(t, sc.CreatedAt.Unix(), loaded.CreatedAt.Unix())
}

func TestJSONFileStore(t *testing.T) {
	testStoreRoundTrip(t, func(t *testing.T, dir string) Store {
		store, err := NewJSONFileStore(dir)
		require.NoError(t, err)
		return store
	})
}

func TestSQLiteSessionStore(t *testing.T) {
	testStoreRoundTrip(t, func(t *testing.T, dir string) Store {
		store, err := NewSQLiteStore(dir)
		require.NoError(t, err)
		return store
	})
}

func TestStoreOverwriteUpdatesLastAccessed(t *testing.T) {
	store, err := NewJSONFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	created := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Save("session:"+identityA, &Context{
		Identity:       identityA,
		CreatedAt:      created,
		LastAccessedAt: created,
	}))

	later := time.Now().UTC()
	require.NoError(t, store.Save("session:"+identityA, &Context{
		Identity:       identityA,
		CreatedAt:      created,
		LastAccessedAt: later,
	}))

	loaded, err := store.Load("session:" + identityA)
	require.NoError(t, err)
	assert.Equal(t, created.Unix(), loaded.CreatedAt.Unix())
	assert.Equal(t, later.Unix(), loaded.LastAccessedAt.Unix())
}
