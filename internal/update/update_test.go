package update

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velopack/velogo/internal/delta"
	"github.com/velopack/velogo/internal/feed"
	"github.com/velopack/velogo/internal/manifest"
)

type fakeSource struct {
	feed feed.Feed
	err  error
}

func (f fakeSource) GetReleaseFeed(ctx context.Context, channel string, currentVersion *semver.Version, appID, stagedUserID string) (feed.Feed, error) {
	return f.feed, f.err
}

func (f fakeSource) DownloadAsset(ctx context.Context, asset feed.Asset, localPath string, progress func(int)) error {
	return nil
}

func testManifest(t *testing.T, version, channel string) *manifest.Manifest {
	t.Helper()
	v, err := semver.NewVersion(version)
	require.NoError(t, err)
	return &manifest.Manifest{ID: "com.example.app", Version: v, Channel: channel, MainExe: "app.exe"}
}

func TestCheckForUpdatesReturnsAvailableForNewerAsset(t *testing.T) {
	src := fakeSource{feed: feed.Feed{Assets: []feed.Asset{
		{Type: feed.TypeFull, Version: "2.0.0", FileName: "com.example.app-2.0.0-full.nupkg"},
	}}}
	o := New()

	info, err := o.CheckForUpdates(context.Background(), nil, testManifest(t, "1.0.0", "stable"), src, "", false)
	require.NoError(t, err)
	assert.Equal(t, feed.UpdateAvailable, info.Status)
	assert.False(t, info.IsDowngrade)
}

func TestCheckForUpdatesReturnsNoUpdateWhenCurrent(t *testing.T) {
	src := fakeSource{feed: feed.Feed{Assets: []feed.Asset{
		{Type: feed.TypeFull, Version: "1.0.0", FileName: "com.example.app-1.0.0-full.nupkg"},
	}}}
	o := New()

	info, err := o.CheckForUpdates(context.Background(), nil, testManifest(t, "1.0.0", "stable"), src, "", false)
	require.NoError(t, err)
	assert.Equal(t, feed.NoUpdate, info.Status)
}

func TestCheckForUpdatesExplicitChannelOverridesManifestChannel(t *testing.T) {
	// S5: same version, different channel, downgrade allowed -> treated as
	// an available channel-switch update.
	src := fakeSource{feed: feed.Feed{Assets: []feed.Asset{
		{Type: feed.TypeFull, Version: "1.0.0", FileName: "com.example.app-1.0.0-full.nupkg"},
	}}}
	o := New()

	info, err := o.CheckForUpdates(context.Background(), nil, testManifest(t, "1.0.0", "stable"), src, "beta", true)
	require.NoError(t, err)
	assert.Equal(t, feed.UpdateAvailable, info.Status)
	assert.True(t, info.IsDowngrade)
}

func TestResolvePackageFullAssetReturnsDirectPath(t *testing.T) {
	packagesDir := t.TempDir()
	asset := feed.Asset{Type: feed.TypeFull, FileName: "app-2.0.0-full.nupkg"}

	path, err := ResolvePackage(packagesDir, asset, "", nil, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(packagesDir, asset.FileName), path)
}

func TestResolvePackageDeltaAssetComposesThroughDeltaApply(t *testing.T) {
	packagesDir := t.TempDir()
	scratch := t.TempDir()

	oldFull := buildTestNupkg(t, map[string]string{"lib/net8.0/app.txt": "v1"})

	asset := feed.Asset{Type: feed.TypeDelta, PackageID: "app", Version: "2.0.0"}

	_, err := ResolvePackage(packagesDir, asset, oldFull, []delta.Delta{}, scratch)
	require.NoError(t, err)

	output := filepath.Join(packagesDir, "app-2.0.0-full.nupkg")
	_, err = os.Stat(output)
	assert.NoError(t, err)
}

// buildTestNupkg writes a minimal zip archive with the given entries and
// returns its path, for delta.Apply's extraction step to consume.
func buildTestNupkg(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "old-full.nupkg")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, contents := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return path
}
