package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStorePendingRestartRoundTrip(t *testing.T) {
	store, err := OpenStateStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.PendingRestart("my.app")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetPendingRestart("my.app", "2.0.0", false))

	version, ok, err := store.PendingRestart("my.app")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2.0.0", version)
}

func TestStateStoreClearPendingRestart(t *testing.T) {
	store, err := OpenStateStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SetPendingRestart("my.app", "2.0.0", true))
	require.NoError(t, store.ClearPendingRestart("my.app"))

	_, ok, err := store.PendingRestart("my.app")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStoreIsolatesByAppID(t *testing.T) {
	store, err := OpenStateStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SetPendingRestart("app.one", "1.1.0", false))

	_, ok, err := store.PendingRestart("app.two")
	require.NoError(t, err)
	assert.False(t, ok)
}
