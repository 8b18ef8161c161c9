//go:build !windows

package applock

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Acquire takes an exclusive, non-blocking advisory flock on a lock file
// under the OS temp dir keyed on appID, the POSIX equivalent of the named
// Win32 mutex.
func Acquire(appID string) (*Lock, error) {
	path := filepath.Join(os.TempDir(), mutexName(appID)+".lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("applock: open %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, errLockBusy
		}
		return nil, fmt.Errorf("applock: flock %s: %w", path, err)
	}

	return &Lock{release: func() error {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		return f.Close()
	}}, nil
}
