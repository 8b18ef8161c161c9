//go:build windows

package proc

import "golang.org/x/sys/windows"

// resolveLongName expands an 8.3 short path to its long-name form via the
// OS, so "C:\PROGRA~1\Foo" and "C:\Program Files\Foo" compare equal.
func resolveLongName(p string) (string, bool) {
	u16, err := windows.UTF16PtrFromString(p)
	if err != nil {
		return "", false
	}

	const maxLongPath = 32768
	buf := make([]uint16, maxLongPath)
	n, err := windows.GetLongPathName(u16, &buf[0], uint32(len(buf)))
	if err != nil || n == 0 {
		// Not found / no permission: fall back to the cleaned input rather
		// than failing the whole comparison.
		return p, true
	}
	return windows.UTF16ToString(buf[:n]), true
}
