//go:build windows

package locator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/velopack/velogo/internal/operr"
)

// AutoLocate walks parent directories of startPath until one contains
// Update.exe; that directory is root_dir. The "current" subfolder is
// expected but not required to exist (an install in progress may lack it).
//
// Two legacy fallbacks apply, matching the original Velopack locator: if
// the direct-parent walk fails, search for the last "\current\" path
// component and check its parent; and if root_dir contains "app-<semver>"
// folders instead of "current", flag NeedsMigration instead of failing.
func AutoLocate(startPath string) (*Locator, error) {
	for dir := filepath.Dir(startPath); ; dir = filepath.Dir(dir) {
		if loc, err := tryRoot(dir); err == nil {
			return loc, nil
		}
		if filepath.Dir(dir) == dir {
			break
		}
	}

	// Fallback: find "\current\" anywhere in the path and treat its prefix
	// as a candidate root.
	normalized := filepath.ToSlash(startPath)
	if idx := strings.LastIndex(strings.ToLower(normalized), "/current/"); idx >= 0 {
		candidateRoot := filepath.FromSlash(normalized[:idx])
		if loc, err := tryRoot(candidateRoot); err == nil {
			return loc, nil
		}
	}

	return nil, operr.ErrNotInstalled
}

func tryRoot(root string) (*Locator, error) {
	loc, err := newFromRoot(root)
	if err == nil {
		return applyLegacyFallbacks(loc)
	}

	// No Update.exe: check for the legacy app-<semver> layout before giving up.
	legacyDirs, lerr := LegacyAppDirs(root)
	if lerr == nil && len(legacyDirs) > 0 {
		if _, statErr := os.Stat(filepath.Join(root, "Update.exe")); statErr == nil {
			l, nerr := newFromRoot(root)
			if nerr == nil {
				l.NeedsMigration = true
				return l, nil
			}
		}
	}
	return nil, err
}

// applyLegacyFallbacks flags NeedsMigration when root has no "current"
// directory but does hold legacy "app-<semver>" folders. It reads no
// manifest and enumerates no packages: the manifest path still points at
// current/sq.version, and falling back to the manifest embedded in the
// highest packages/*-full.nupkg when that file is missing is left to the
// caller (cmd/update's currentManifest does this).
func applyLegacyFallbacks(loc *Locator) (*Locator, error) {
	if _, err := os.Stat(filepath.Join(loc.RootDir, "current")); err == nil {
		return loc, nil
	}

	legacyDirs, err := LegacyAppDirs(loc.RootDir)
	if err == nil && len(legacyDirs) > 0 {
		loc.NeedsMigration = true
	}
	return loc, nil
}
