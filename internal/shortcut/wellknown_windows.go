//go:build windows

package shortcut

import (
	"os"
	"path/filepath"

	"github.com/velopack/velogo/internal/manifest"
)

// wellKnownDir resolves the filesystem directory backing a shortcut
// location, using per-user environment variables the way the OS shell
// itself resolves them.
func wellKnownDir(loc manifest.ShortcutLocation) (string, error) {
	appData := os.Getenv("APPDATA")
	userProfile := os.Getenv("USERPROFILE")

	switch loc {
	case manifest.LocationDesktop:
		return filepath.Join(userProfile, "Desktop"), nil
	case manifest.LocationStartup:
		return filepath.Join(appData, "Microsoft", "Windows", "Start Menu", "Programs", "Startup"), nil
	case manifest.LocationStartMenu:
		return filepath.Join(appData, "Microsoft", "Windows", "Start Menu", "Programs"), nil
	case manifest.LocationStartMenuRoot:
		return filepath.Join(appData, "Microsoft", "Windows", "Start Menu"), nil
	case manifest.LocationUserPinned:
		return filepath.Join(appData, "Microsoft", "Internet Explorer", "Quick Launch", "User Pinned", "TaskBar"), nil
	default:
		return "", errUnknownLocation
	}
}

// unpinIfPinned best-effort unpins lnkPath from the taskbar and the Start
// menu by invoking each surface's unpin verb on the shell item.
func unpinIfPinned(lnkPath string) error {
	if err := invokePinnedListVerb(lnkPath, "Unpin from taskbar"); err != nil {
		return err
	}
	return invokePinnedListVerb(lnkPath, "Unpin from Start")
}
