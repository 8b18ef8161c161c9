//go:build !windows

package uninstall

// scheduleDeleteOnReboot has no portable equivalent outside Windows; the
// tombstone file written by the caller is the only signal a residual
// install leaves behind on these platforms.
func scheduleDeleteOnReboot(dir string) {}
