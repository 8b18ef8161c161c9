package update

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicSwapFastRenamePath(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "file.txt"), []byte("hello"), 0o644))

	usedFallback, err := atomicSwap(src, dst)
	require.NoError(t, err)
	assert.False(t, usedFallback)

	contents, err := os.ReadFile(filepath.Join(dst, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

// TestAtomicSwapRestoreOnFailedApply reproduces the rollback invariant
// of apply: if moving the new tree into place fails, the old
// tree must still be restorable by swapping it back from its staging slot.
func TestAtomicSwapRestoreOnFailedApply(t *testing.T) {
	root := t.TempDir()
	current := filepath.Join(root, "current")
	tmpOld := filepath.Join(root, "tmp_old")

	require.NoError(t, os.MkdirAll(current, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(current, "app.exe"), []byte("v1"), 0o644))

	usedFallback, err := atomicSwap(current, tmpOld)
	require.NoError(t, err)
	assert.False(t, usedFallback)
	_, err = os.Stat(current)
	assert.True(t, os.IsNotExist(err))

	// Simulate the new-version move failing by never creating tmpNew, then
	// restore tmpOld back into current -- current must come back byte-for-byte.
	_, err = atomicSwap(tmpOld, current)
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(current, "app.exe"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(contents))
}

