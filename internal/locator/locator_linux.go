//go:build linux

package locator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/velopack/velogo/internal/operr"
)

// AutoLocate finds "/usr/bin/" in startPath; root_dir is that directory,
// and it expects "UpdateNix" and "sq.version" alongside the executable.
// Packages live under /var/tmp/velopack/<id>/packages.
func AutoLocate(startPath string) (*Locator, error) {
	normalized := filepath.ToSlash(startPath)
	idx := strings.LastIndex(normalized, "/usr/bin/")
	if idx < 0 {
		return nil, operr.ErrNotInstalled
	}

	binDir := filepath.FromSlash(normalized[:idx]) + string(filepath.Separator) + "usr" + string(filepath.Separator) + "bin"
	updateExe := filepath.Join(binDir, "UpdateNix")
	if _, err := os.Stat(updateExe); err != nil {
		return nil, operr.ErrMissingUpdateExe
	}

	return &Locator{
		RootDir:       binDir,
		CurrentBinDir: binDir,
		PackagesDir:   defaultPackagesCacheDir(""),
		UpdateExePath: updateExe,
		ManifestPath:  filepath.Join(binDir, "sq.version"),
		IsPortable:    true,
	}, nil
}

// defaultPackagesCacheDir returns /var/tmp/velopack/<id>/packages.
func defaultPackagesCacheDir(appID string) string {
	return filepath.Join("/var", "tmp", "velopack", appID, "packages")
}

// WithAppID fills in the id-scoped packages cache path once the caller has
// read the manifest.
func (loc *Locator) WithAppID(appID string) *Locator {
	cp := *loc
	cp.PackagesDir = defaultPackagesCacheDir(appID)
	return &cp
}
