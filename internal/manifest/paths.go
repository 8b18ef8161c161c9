package manifest

import "path/filepath"

// CurrentBinDir returns root/current.
func CurrentBinDir(rootDir string) string {
	return filepath.Join(rootDir, "current")
}

// PackagesDir returns root/packages.
func PackagesDir(rootDir string) string {
	return filepath.Join(rootDir, "packages")
}

// UpdateExePath returns root/Update.exe.
func UpdateExePath(rootDir string) string {
	return filepath.Join(rootDir, "Update.exe")
}

// ManifestPath returns root/current/sq.version.
func ManifestPath(rootDir string) string {
	return filepath.Join(CurrentBinDir(rootDir), "sq.version")
}

// TempDir returns root/packages/VelopackTemp, the scratch directory used by
// download and delta staging.
func TempDir(rootDir string) string {
	return filepath.Join(PackagesDir(rootDir), "VelopackTemp")
}
