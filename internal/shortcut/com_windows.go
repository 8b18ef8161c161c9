//go:build windows

package shortcut

import (
	"runtime"
	"time"

	ole "github.com/go-ole/go-ole"
)

// runOnSTAWorker runs fn on a dedicated worker thread that initialises a
// single-threaded COM apartment, sleeps 1ms, executes fn, then
// uninitialises. The caller blocks until the worker finishes. Removing the
// sleep intermittently breaks IShellLink calls.
func runOnSTAWorker(fn func() error) error {
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
			errCh <- err
			return
		}
		defer ole.CoUninitialize()

		time.Sleep(1 * time.Millisecond)

		errCh <- fn()
	}()

	return <-errCh
}
