package allowedcmd

import (
	"context"
	"os/exec"
)

// AppMainExe wraps an invocation of the installed application's own main
// executable, used for lifecycle hooks (--veloapp-install/-updated/
// -obsolete/-uninstall) and the first-run spawn. The path always lives
// inside the install tree this process itself just wrote, so (unlike
// arbitrary user-supplied commands) no allowlist lookup is needed.
func AppMainExe(ctx context.Context, path string, arg ...string) *TracedCmd {
	cmd := exec.CommandContext(ctx, path, arg...) //nolint:forbidigo // approved usage, see doc comment
	return &TracedCmd{Ctx: ctx, Cmd: cmd}
}
