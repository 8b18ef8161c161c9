//go:build !windows

package shortcut

import "github.com/velopack/velogo/internal/manifest"

// CreateOrUpdate is a no-op outside Windows: Velopack shortcut
// reconciliation targets the Windows shell only (macOS/Linux installs rely
// on Dock/launcher integration handled elsewhere).
func CreateOrUpdate(loc manifest.ShortcutLocation, target Target) error {
	return nil
}

// Remove is a no-op outside Windows.
func Remove(loc manifest.ShortcutLocation, title string) error {
	return nil
}

// Enumerate always returns no shortcuts outside Windows.
func Enumerate(loc manifest.ShortcutLocation, installRoot string) ([]string, error) {
	return nil, nil
}

// RenameMatching is a no-op outside Windows.
func RenameMatching(prev, next Target) error {
	return nil
}
