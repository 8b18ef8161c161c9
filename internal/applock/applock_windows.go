//go:build windows

package applock

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Acquire opens (creating if necessary) a named Win32 mutex keyed on appID
// and takes ownership of it without blocking. If another process already
// holds it, operr.ErrLockBusy is returned.
func Acquire(appID string) (*Lock, error) {
	namePtr, err := windows.UTF16PtrFromString(`Global\` + mutexName(appID))
	if err != nil {
		return nil, fmt.Errorf("applock: encode mutex name: %w", err)
	}

	handle, err := windows.CreateMutex(nil, false, namePtr)
	if err != nil && err != windows.ERROR_ALREADY_EXISTS {
		return nil, fmt.Errorf("applock: CreateMutex: %w", err)
	}
	alreadyExisted := err == windows.ERROR_ALREADY_EXISTS

	const waitObject0 = 0
	const waitTimeout = 0x00000102
	result, waitErr := windows.WaitForSingleObject(handle, 0)
	if waitErr != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("applock: WaitForSingleObject: %w", waitErr)
	}
	if result == waitTimeout {
		windows.CloseHandle(handle)
		return nil, errLockBusy
	}
	if result != waitObject0 {
		windows.CloseHandle(handle)
		return nil, errLockBusy
	}

	_ = alreadyExisted

	return &Lock{release: func() error {
		windows.ReleaseMutex(handle)
		return windows.CloseHandle(handle)
	}}, nil
}
