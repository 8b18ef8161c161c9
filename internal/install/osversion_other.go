//go:build !windows

package install

// hostOSVersion has no portable semver-shaped equivalent to Windows build
// numbers on macOS/Linux; CheckOSVersion treats an unparsable or empty
// host version as "skip the check", which is the correct behavior here --
// os_min_version in practice is only meaningful for Windows packages.
func hostOSVersion() string {
	return ""
}

func detectWindows11() bool {
	return false
}
