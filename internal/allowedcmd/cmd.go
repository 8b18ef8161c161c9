// Package allowedcmd wraps access to exec.Cmd to consolidate path-lookup
// logic for the small set of external tools the orchestrators invoke:
// the app's own main executable (hooks, first-run), the robocopy
// fallback on Windows, and the various prerequisite bootstrapper
// installers. All exec.Cmd usage in this module goes through here.
package allowedcmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
)

// TracedCmd wraps exec.Cmd so every invocation point is one audited choke
// point rather than scattered exec.Command calls.
type TracedCmd struct {
	Ctx context.Context //nolint:containedctx // short-lived cmd, approved usage
	*exec.Cmd
}

func (t *TracedCmd) String() string {
	return fmt.Sprintf("%+v", t.Args)
}

var ErrCommandNotFound = errors.New("command not found")

// AllowedCommand resolves to one of a small set of known executable paths,
// falling back to $PATH lookup only where the exact install location is
// genuinely unknowable ahead of time (NixOS store paths).
type AllowedCommand struct {
	knownPaths []string
	env        []string
}

func newAllowedCommand(knownPaths ...string) AllowedCommand {
	return AllowedCommand{knownPaths: knownPaths}
}

func (ac AllowedCommand) WithEnv(env string) AllowedCommand {
	ac.env = append(ac.env, env)
	return ac
}

func (ac AllowedCommand) Name() string {
	if len(ac.knownPaths) == 0 {
		return "~unknown~"
	}
	return ac.knownPaths[0]
}

func (ac AllowedCommand) Cmd(ctx context.Context, arg ...string) (*TracedCmd, error) {
	for _, knownPath := range ac.knownPaths {
		knownPath = filepath.Clean(knownPath)
		if _, err := os.Stat(knownPath); err == nil {
			return ac.newCmd(ctx, knownPath, arg...), nil
		}
	}

	if !allowSearchPath() {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, ac.Name())
	}

	for _, knownPath := range ac.knownPaths {
		cmdName := filepath.Base(knownPath)
		if foundPath, err := exec.LookPath(cmdName); err == nil {
			return ac.newCmd(ctx, foundPath, arg...), nil
		}
	}

	return nil, fmt.Errorf("%w: not found at %s and could not be located elsewhere", ErrCommandNotFound, ac.Name())
}

func (ac AllowedCommand) newCmd(ctx context.Context, fullPathToCmd string, arg ...string) *TracedCmd {
	cmd := exec.CommandContext(ctx, fullPathToCmd, arg...) //nolint:forbidigo // approved usage
	cmd.Env = append(cmd.Environ(), ac.env...)
	return &TracedCmd{Ctx: ctx, Cmd: cmd}
}

func allowSearchPath() bool {
	return IsNixOS()
}

var (
	checkedIsNixOS = &atomic.Bool{}
	isNixOS        = &atomic.Bool{}
)

// IsNixOS reports whether /etc/NIXOS exists, cached after the first check.
func IsNixOS() bool {
	if checkedIsNixOS.Load() {
		return isNixOS.Load()
	}
	if _, err := os.Stat("/etc/NIXOS"); err == nil {
		isNixOS.Store(true)
	}
	checkedIsNixOS.Store(true)
	return isNixOS.Load()
}
