//go:build windows

package proc

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// RelaunchSelfAsAdmin re-invokes the current executable with the "runas"
// shell verb, showing the OS elevation prompt, and returns without
// blocking on the child.
func RelaunchSelfAsAdmin(argv []string) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("proc: locating current executable: %w", err)
	}

	params := QuoteWindowsArgs(argv)

	verb, err := syscall.UTF16PtrFromString("runas")
	if err != nil {
		return err
	}
	file, err := syscall.UTF16PtrFromString(self)
	if err != nil {
		return err
	}
	paramsPtr, err := syscall.UTF16PtrFromString(params)
	if err != nil {
		return err
	}

	const swNormal = 1
	ret, _, _ := shellExecute.Call(
		0,
		uintptr(unsafe.Pointer(verb)),
		uintptr(unsafe.Pointer(file)),
		uintptr(unsafe.Pointer(paramsPtr)),
		0,
		swNormal,
	)
	// ShellExecute returns a value > 32 on success.
	if ret <= 32 {
		return fmt.Errorf("proc: ShellExecute runas failed with code %d", ret)
	}
	return nil
}

var (
	shell32      = windows.NewLazySystemDLL("shell32.dll")
	shellExecute = shell32.NewProc("ShellExecuteW")
)
