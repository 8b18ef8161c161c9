package update

import "os/exec"

func asExitError(err error) (*exec.ExitError, bool) {
	exitErr, ok := err.(*exec.ExitError)
	return exitErr, ok
}
