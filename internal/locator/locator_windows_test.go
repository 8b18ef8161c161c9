//go:build windows

package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoLocateDirectParent(t *testing.T) {
	root := t.TempDir()
	current := filepath.Join(root, "current")
	require.NoError(t, os.MkdirAll(current, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Update.exe"), []byte("x"), 0o755))

	exePath := filepath.Join(current, "Sample.exe")
	require.NoError(t, os.WriteFile(exePath, []byte("x"), 0o755))

	loc, err := AutoLocate(exePath)
	require.NoError(t, err)
	assert.Equal(t, root, loc.RootDir)
	assert.Equal(t, current, loc.CurrentBinDir)
	assert.False(t, loc.NeedsMigration)
}

func TestAutoLocateMissingUpdateExe(t *testing.T) {
	root := t.TempDir()
	current := filepath.Join(root, "current")
	require.NoError(t, os.MkdirAll(current, 0o755))

	exePath := filepath.Join(current, "Sample.exe")
	require.NoError(t, os.WriteFile(exePath, []byte("x"), 0o755))

	_, err := AutoLocate(exePath)
	require.Error(t, err)
}

func TestAutoLocateLegacyMigration(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app-1.0.0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Update.exe"), []byte("x"), 0o755))

	exePath := filepath.Join(root, "app-1.0.0", "Sample.exe")
	require.NoError(t, os.WriteFile(exePath, []byte("x"), 0o755))

	loc, err := AutoLocate(exePath)
	require.NoError(t, err)
	assert.True(t, loc.NeedsMigration)
}
