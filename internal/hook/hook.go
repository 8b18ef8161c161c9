// Package hook invokes the installed application's main executable with one
// of the lifecycle-notification switches, enforcing
// the per-call timeout and translating a non-zero exit or timeout into the
// non-fatal operr sentinels the orchestrators log and swallow.
package hook

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/velopack/velogo/internal/allowedcmd"
	"github.com/velopack/velogo/internal/operr"
)

// Switch identifies which lifecycle notification to send.
type Switch string

const (
	SwitchInstall   Switch = "--veloapp-install"
	SwitchUpdated   Switch = "--veloapp-updated"
	SwitchObsolete  Switch = "--veloapp-obsolete"
	SwitchUninstall Switch = "--veloapp-uninstall"
)

// Run invokes mainExe with sw and version, waiting up to timeout. A
// non-zero exit returns operr.ErrHookFailed; exceeding timeout returns
// operr.ErrHookTimeout. Both are logged by the caller and treated as
// non-fatal warnings, never an abort.
func Run(ctx context.Context, logger log.Logger, mainExe string, sw Switch, version string, timeout time.Duration) error {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := allowedcmd.AppMainExe(runCtx, mainExe, string(sw), version)
	level.Debug(logger).Log("msg", "running lifecycle hook", "switch", sw, "version", version, "exe", mainExe)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		level.Warn(logger).Log("msg", "lifecycle hook timed out", "switch", sw, "version", version, "timeout", timeout)
		return operr.ErrHookTimeout
	}

	level.Warn(logger).Log("msg", "lifecycle hook exited non-zero", "switch", sw, "version", version, "err", err)
	return operr.ErrHookFailed
}
