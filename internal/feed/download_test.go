package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadToPackagesSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	packagesDir := filepath.Join(dir, "packages")
	require.NoError(t, os.MkdirAll(packagesDir, 0o755))

	existing := filepath.Join(packagesDir, "Sample-1.0.0-full.nupkg")
	require.NoError(t, os.WriteFile(existing, []byte("existing"), 0o644))

	asset := Asset{FileName: "Sample-1.0.0-full.nupkg"}
	src := FileSource{Dir: dir}

	path, err := DownloadToPackages(context.Background(), src, asset, packagesDir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, existing, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(content))
}

func TestDownloadToPackagesDeletesStale(t *testing.T) {
	dir := t.TempDir()
	packagesDir := filepath.Join(dir, "packages")
	require.NoError(t, os.MkdirAll(packagesDir, 0o755))

	stale := filepath.Join(packagesDir, "Sample-1.0.0-full.nupkg")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sample-1.1.0-full.nupkg"), []byte("new-bytes"), 0o644))

	asset := Asset{FileName: "Sample-1.1.0-full.nupkg"}
	src := FileSource{Dir: dir}

	path, err := DownloadToPackages(context.Background(), src, asset, packagesDir, "", nil)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.NoFileExists(t, stale)
}
