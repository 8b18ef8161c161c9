//go:build windows

package update

import (
	"context"
	"fmt"
	"time"

	"github.com/velopack/velogo/internal/allowedcmd"
)

// mirrorCopy mirrors src into dst using Robocopy, the Windows tool
// purpose-built for exactly this "some handles are still open in the
// source tree" scenario, with retries tuned tighter than its defaults.
func mirrorCopy(src, dst string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd, err := allowedcmd.Robocopy.Cmd(ctx, src, dst, "/MIR", "/R:3", "/W:1", "/NFL", "/NDL", "/NJH", "/NJS")
	if err != nil {
		return err
	}

	// Robocopy's own exit-code convention treats 0-7 as success (various
	// combinations of files copied/skipped); only 8+ is a real failure.
	err = cmd.Run()
	if exitErr, ok := asExitError(err); ok && exitErr.ExitCode() < 8 {
		return nil
	}
	if err != nil {
		return fmt.Errorf("robocopy %s -> %s: %w", src, dst, err)
	}
	return nil
}
