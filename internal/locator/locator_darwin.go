//go:build darwin

package locator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/velopack/velogo/internal/operr"
)

// AutoLocate finds the nearest ".app/" boundary in startPath, then expects
// "Contents/MacOS/UpdateMac" and "Contents/MacOS/sq.version" beneath it.
// Packages live under ~/Library/Caches/velopack/<id>/packages, which is
// filled in by the caller once the manifest id is known (see WithAppID).
func AutoLocate(startPath string) (*Locator, error) {
	normalized := filepath.ToSlash(startPath)
	idx := strings.LastIndex(strings.ToLower(normalized), ".app/")
	if idx < 0 {
		return nil, operr.ErrNotInstalled
	}

	appRoot := filepath.FromSlash(normalized[:idx+4])
	macOSDir := filepath.Join(appRoot, "Contents", "MacOS")
	updateExe := filepath.Join(macOSDir, "UpdateMac")
	if _, err := os.Stat(updateExe); err != nil {
		return nil, operr.ErrMissingUpdateExe
	}

	return &Locator{
		RootDir:       appRoot,
		CurrentBinDir: macOSDir,
		PackagesDir:   defaultPackagesCacheDir(""),
		UpdateExePath: updateExe,
		ManifestPath:  filepath.Join(macOSDir, "sq.version"),
		IsPortable:    true,
	}, nil
}

// defaultPackagesCacheDir returns ~/Library/Caches/velopack/<id>/packages.
// Called once with the manifest id known to fill in the final path segment.
func defaultPackagesCacheDir(appID string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, "Library", "Caches", "velopack", appID, "packages")
}

// WithAppID fills in the id-scoped packages cache path once the caller has
// read the manifest.
func (loc *Locator) WithAppID(appID string) *Locator {
	cp := *loc
	cp.PackagesDir = defaultPackagesCacheDir(appID)
	return &cp
}
