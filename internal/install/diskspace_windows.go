//go:build windows

package install

import (
	"golang.org/x/sys/windows"
)

func freeSpace(path string) (uint64, error) {
	var freeBytesAvailable uint64
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, nil, nil); err != nil {
		return 0, err
	}
	return freeBytesAvailable, nil
}
