//go:build !windows

package proc

import "syscall"

// terminate sends SIGKILL to pid, the POSIX equivalent of the Windows
// TerminateProcess call.
func terminate(pid int32) error {
	return syscall.Kill(int(pid), syscall.SIGKILL)
}
