//go:build windows

package proc

import (
	winio "github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

// terminate opens pid with PROCESS_TERMINATE and kills it. StopAllInDirectory
// runs during an elevated update (see internal/update), where the target
// instance can be running at a different integrity level than the updater;
// SeDebugPrivilege is enabled for the call so OpenProcess doesn't fail with
// access denied against those instances.
func terminate(pid int32) error {
	var h windows.Handle
	err := winio.RunWithPrivilege("SeDebugPrivilege", func() error {
		var openErr error
		h, openErr = windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
		return openErr
	})
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	return windows.TerminateProcess(h, 1)
}
