// Package locator discovers an installed application's root directory,
// current binary directory, packages directory, and update-executable path
// from any entry point (typically the running executable's own path).
package locator

import (
	"os"
	"path/filepath"

	"github.com/velopack/velogo/internal/manifest"
	"github.com/velopack/velogo/internal/operr"
)

// Locator is the resolved physical layout of an installed application.
type Locator struct {
	RootDir        string
	CurrentBinDir  string
	PackagesDir    string
	UpdateExePath  string
	ManifestPath   string
	IsPortable     bool

	// NeedsMigration is set when a legacy Squirrel-style "app-<semver>"
	// layout was found instead of a "current" directory; the update
	// orchestrator is responsible for migrating it before proceeding.
	NeedsMigration bool
}

// RegistryProbe abstracts the per-user uninstall-registry lookup so this
// package stays platform-neutral; the concrete implementation lives in
// internal/winreg and is injected by callers that care about portability
// detection (install/update/uninstall orchestrators). Locator construction
// itself never fails because of it -- IsPortable just defaults to true.
type RegistryProbe func(appID string) (exists bool, err error)

// newFromRoot builds a Locator given a resolved root directory. It returns
// operr.ErrMissingUpdateExe if Update.exe is absent -- per the Locator
// invariant, no Locator is ever produced without one.
func newFromRoot(rootDir string) (*Locator, error) {
	updateExe := manifest.UpdateExePath(rootDir)
	if _, err := os.Stat(updateExe); err != nil {
		return nil, operr.ErrMissingUpdateExe
	}

	return &Locator{
		RootDir:       rootDir,
		CurrentBinDir: manifest.CurrentBinDir(rootDir),
		PackagesDir:   manifest.PackagesDir(rootDir),
		UpdateExePath: updateExe,
		ManifestPath:  manifest.ManifestPath(rootDir),
		IsPortable:    true,
	}, nil
}

// Discover resolves a Locator from the path of a running executable that
// lives in root/current (the app's own main exe, or Update.exe sitting
// directly in root). It walks up from whichever of the two layouts matches.
func Discover(exePath string) (*Locator, error) {
	dir, err := filepath.Abs(filepath.Dir(exePath))
	if err != nil {
		return nil, err
	}

	if filepath.Base(dir) == "current" {
		return newFromRoot(filepath.Dir(dir))
	}
	return newFromRoot(dir)
}

// WithRegistryProbe resolves IsPortable using probe and returns a shallow
// copy of loc with the field updated.
func (loc *Locator) WithRegistryProbe(appID string, probe RegistryProbe) (*Locator, error) {
	if probe == nil {
		return loc, nil
	}
	exists, err := probe(appID)
	if err != nil {
		return loc, err
	}
	cp := *loc
	cp.IsPortable = !exists
	return &cp, nil
}

// WithManifestVersion returns a shallow copy of loc for the update
// orchestrator's "new" locator. Every path a Locator carries is
// root-relative, so the copy equals loc; m is not stored in it.
func (loc *Locator) WithManifestVersion(m *manifest.Manifest) *Locator {
	cp := *loc
	return &cp
}

// LegacyAppDirs enumerates "app-<semver>" folders directly under rootDir,
// the legacy Squirrel.Windows layout. Returned in ascending version order.
func LegacyAppDirs(rootDir string) ([]string, error) {
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []legacyDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if v, ok := parseLegacyAppDir(e.Name()); ok {
			dirs = append(dirs, legacyDir{name: e.Name(), version: v})
		}
	}

	sortLegacyDirs(dirs)

	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = filepath.Join(rootDir, d.name)
	}
	return out, nil
}
