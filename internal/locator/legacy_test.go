package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyAppDirs(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"app-1.0.0", "app-1.2.0", "app-0.9.0", "current", "packages", "not-an-app-dir"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
	}

	dirs, err := LegacyAppDirs(root)
	require.NoError(t, err)
	require.Len(t, dirs, 3)
	assert.Equal(t, filepath.Join(root, "app-0.9.0"), dirs[0])
	assert.Equal(t, filepath.Join(root, "app-1.0.0"), dirs[1])
	assert.Equal(t, filepath.Join(root, "app-1.2.0"), dirs[2])
}

func TestLegacyAppDirsMissingRoot(t *testing.T) {
	dirs, err := LegacyAppDirs(filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	assert.Empty(t, dirs)
}
