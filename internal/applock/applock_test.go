package applock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velopack/velogo/internal/operr"
)

func TestAcquireIsExclusive(t *testing.T) {
	appID := "velogo-applock-test"

	first, err := Acquire(appID)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(appID)
	assert.True(t, errors.Is(err, operr.ErrLockBusy))
}

func TestReleaseThenAcquireAgainSucceeds(t *testing.T) {
	appID := "velogo-applock-test-2"

	first, err := Acquire(appID)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := Acquire(appID)
	require.NoError(t, err)
	defer second.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	appID := "velogo-applock-test-3"

	lock, err := Acquire(appID)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}
