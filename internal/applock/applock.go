// Package applock provides the single named system-wide mutex, keyed on an
// application id, that install/update/uninstall orchestrators hold for the
// duration of one operation.
package applock

import (
	"fmt"

	"github.com/velopack/velogo/internal/operr"
)

// Lock is a held exclusive lock on an application id. Release must be
// called exactly once.
type Lock struct {
	release func() error
}

// Release frees the lock. Safe to call once; subsequent calls are no-ops.
func (l *Lock) Release() error {
	if l == nil || l.release == nil {
		return nil
	}
	release := l.release
	l.release = nil
	return release()
}

func mutexName(appID string) string {
	return fmt.Sprintf("velopack-%s", appID)
}

// errLockBusy is what the platform backends return when another process
// already holds the mutex.
var errLockBusy = operr.ErrLockBusy
