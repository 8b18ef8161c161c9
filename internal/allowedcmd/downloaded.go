package allowedcmd

import (
	"context"
	"os/exec"
)

// DownloadedInstaller wraps a bootstrapper binary that was itself just
// downloaded by the prerequisite resolver (C12) to a scratch path we chose.
// Unlike AllowedCommand, the path isn't a fixed well-known location, but it
// is never attacker-influenced: it is always a path this process wrote to
// moments earlier.
func DownloadedInstaller(ctx context.Context, path string, arg ...string) *TracedCmd {
	cmd := exec.CommandContext(ctx, path, arg...) //nolint:forbidigo // approved usage, see doc comment
	return &TracedCmd{Ctx: ctx, Cmd: cmd}
}
