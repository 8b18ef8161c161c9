//go:build windows

package uninstall

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// scheduleDeleteOnReboot walks dir and asks the OS to remove every entry it
// still holds an open handle to the next time the machine boots, via
// MoveFileEx's MOVEFILE_DELAY_UNTIL_REBOOT flag -- the standard Windows
// mechanism for files an uninstaller cannot remove immediately.
func scheduleDeleteOnReboot(dir string) {
	var residue []string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			residue = append(residue, path)
		}
		return nil
	})

	for _, path := range residue {
		markForDeletion(path)
	}
	markForDeletion(dir)
}

func markForDeletion(path string) {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return
	}
	// Best effort; there is no useful recovery if the OS refuses.
	_ = windows.MoveFileEx(ptr, nil, windows.MOVEFILE_DELAY_UNTIL_REBOOT)
}
