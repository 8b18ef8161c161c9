//go:build windows

package install

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func hostOSVersion() string {
	major, minor, build := windows.RtlGetNtVersionNumbers()
	return fmt.Sprintf("%d.%d.%d", major, minor, build)
}

func detectWindows11() bool {
	major, _, build := windows.RtlGetNtVersionNumbers()
	// Windows 11 reports as major version 10 with build >= 22000.
	return major == 10 && build >= 22000
}
