// Package uninstall implements the uninstall orchestrator (C11): stopping
// the running app, firing its final lifecycle hook, removing shortcuts and
// registry entries, and deleting the install tree.
package uninstall

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/velopack/velogo/internal/applock"
	"github.com/velopack/velogo/internal/hook"
	"github.com/velopack/velogo/internal/locator"
	"github.com/velopack/velogo/internal/manifest"
	"github.com/velopack/velogo/internal/proc"
	"github.com/velopack/velogo/internal/shortcut"
	"github.com/velopack/velogo/internal/winreg"
)

// Orchestrator runs a single uninstall operation.
type Orchestrator struct {
	logger log.Logger
}

type Option func(*Orchestrator)

func WithLogger(logger log.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result reports whether the install tree was fully removed.
type Result struct {
	// Residue is true when step 7 (deleting "current") left files behind,
	// in which case a ".dead" tombstone was written and the remainder was
	// scheduled for deletion at next boot.
	Residue bool
	LogPath string
}

var allShortcutLocations = []manifest.ShortcutLocation{
	manifest.LocationDesktop,
	manifest.LocationStartup,
	manifest.LocationStartMenu,
	manifest.LocationStartMenuRoot,
	manifest.LocationUserPinned,
}

// Uninstall runs the eight-step removal sequence against an already-resolved
// install.
func (o *Orchestrator) Uninstall(ctx context.Context, loc *locator.Locator, m *manifest.Manifest, logPath string) (Result, error) {
	logger := o.logger

	// 1. Acquire lock.
	lock, err := applock.Acquire(m.ID)
	if err != nil {
		return Result{}, err
	}
	defer lock.Release()

	// 2. Force-stop processes in the install tree.
	if _, err := proc.StopAllInDirectory(ctx, loc.CurrentBinDir); err != nil {
		level.Warn(logger).Log("msg", "failed to stop processes before uninstall", "err", err)
	}

	// 3. Final hook.
	if m.MainExe != "" {
		mainExe := filepath.Join(loc.CurrentBinDir, m.MainExe)
		if err := hook.Run(ctx, logger, mainExe, hook.SwitchUninstall, m.Version.String(), 30*time.Second); err != nil {
			level.Warn(logger).Log("msg", "uninstall hook failed", "err", err)
		}
	}

	// 4. Remove shortcuts.
	for _, loc2 := range allShortcutLocations {
		if err := shortcut.Remove(loc2, m.Title); err != nil {
			level.Warn(logger).Log("msg", "failed to remove shortcut", "location", loc2, "err", err)
		}
	}

	// 5. Remove custom URL protocols.
	if err := winreg.RegisterURLProtocols(m.CustomURLProtocols, nil, ""); err != nil {
		level.Warn(logger).Log("msg", "failed to remove url protocols", "err", err)
	}

	// 6. Remove uninstall registry entry.
	if err := winreg.Remove(m.ID); err != nil {
		level.Warn(logger).Log("msg", "failed to remove uninstall registry entry", "err", err)
	}

	// 7. Delete current. The packages cache and the root itself are
	// best-effort: the running updater binary usually can't delete itself,
	// so an otherwise clean uninstall may still leave root and Update.exe
	// until next boot.
	result := Result{LogPath: logPath}
	if err := os.RemoveAll(loc.CurrentBinDir); err != nil {
		level.Warn(logger).Log("msg", "residue left after uninstall, writing tombstone", "err", err)
		tombstone := filepath.Join(loc.RootDir, ".dead")
		if werr := os.WriteFile(tombstone, nil, 0o644); werr != nil {
			level.Warn(logger).Log("msg", "failed to write tombstone", "err", werr)
		}
		scheduleDeleteOnReboot(loc.CurrentBinDir)
		result.Residue = true
	}
	os.RemoveAll(loc.PackagesDir)
	if err := os.Remove(loc.RootDir); err != nil {
		scheduleDeleteOnReboot(loc.UpdateExePath)
		scheduleDeleteOnReboot(loc.RootDir)
	}

	return result, nil
}

// ExitCode computes the updater CLI's process exit code for r: 0 for a
// clean uninstall, non-zero when residue remains.
func (r Result) ExitCode() int {
	if r.Residue {
		return 1
	}
	return 0
}
