// Package update implements the update orchestrator (C10): checking the
// feed, downloading the chosen asset, and applying it -- the "stage
// download, acquire lock, stop target, swap current, fire lifecycle hooks,
// write registry, update shortcuts, restart or exit" pipeline.
package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"github.com/oklog/run"

	"github.com/velopack/velogo/internal/allowedcmd"
	"github.com/velopack/velogo/internal/applock"
	"github.com/velopack/velogo/internal/bundle"
	"github.com/velopack/velogo/internal/delta"
	"github.com/velopack/velogo/internal/dialog"
	"github.com/velopack/velogo/internal/feed"
	"github.com/velopack/velogo/internal/hook"
	"github.com/velopack/velogo/internal/locator"
	"github.com/velopack/velogo/internal/manifest"
	"github.com/velopack/velogo/internal/operr"
	"github.com/velopack/velogo/internal/prereq"
	"github.com/velopack/velogo/internal/proc"
	"github.com/velopack/velogo/internal/shortcut"
	"github.com/velopack/velogo/internal/winreg"
)

// Orchestrator runs check/download/apply operations for one installed app.
type Orchestrator struct {
	logger   log.Logger
	prompter dialog.Prompter
	progress *dialog.Stream
}

type Option func(*Orchestrator)

func WithLogger(logger log.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithPrompter(p dialog.Prompter) Option {
	return func(o *Orchestrator) { o.prompter = p }
}

func WithProgress(s *dialog.Stream) Option {
	return func(o *Orchestrator) { o.progress = s }
}

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{logger: log.NewNopLogger(), prompter: dialog.SilentPrompter{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CheckForUpdates runs the update-selection algorithm against the
// currently installed manifest.
func (o *Orchestrator) CheckForUpdates(ctx context.Context, loc *locator.Locator, m *manifest.Manifest, src feed.Source, explicitChannel string, allowDowngrade bool) (feed.UpdateInfo, error) {
	practical := feed.PracticalChannel(explicitChannel, m.Channel, feed.DefaultChannel(runtime.GOOS))

	f, err := src.GetReleaseFeed(ctx, practical, m.Version, m.ID, "")
	if err != nil {
		return feed.UpdateInfo{}, fmt.Errorf("update: fetching release feed: %w", err)
	}

	return feed.Select(f, m.Version, allowDowngrade, practical, m.Channel), nil
}

// DownloadUpdates stages the selected asset into loc.PackagesDir, serialized
// through the same named lock install uses. The actual transfer and a
// context-cancellation watchdog run as a run.Group so cancelling ctx (e.g.
// the dialog's cancel button) reliably tears down the in-flight download.
func (o *Orchestrator) DownloadUpdates(ctx context.Context, loc *locator.Locator, m *manifest.Manifest, src feed.Source, info feed.UpdateInfo) (string, error) {
	if info.Status != feed.UpdateAvailable {
		return "", fmt.Errorf("update: DownloadUpdates called without an available update")
	}

	lock, err := applock.Acquire(m.ID)
	if err != nil {
		return "", err
	}
	defer lock.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var localPath string
	var g run.Group

	g.Add(func() error {
		p, err := feed.DownloadToPackages(ctx, src, info.TargetAsset, loc.PackagesDir, loc.UpdateExePath, o.progressFunc())
		localPath = p
		return err
	}, func(error) { cancel() })

	g.Add(func() error {
		<-ctx.Done()
		return ctx.Err()
	}, func(error) { cancel() })

	if err := g.Run(); err != nil && localPath == "" {
		return "", fmt.Errorf("update: downloading %s: %w", info.TargetAsset.FileName, err)
	}
	return localPath, nil
}

func (o *Orchestrator) progressFunc() func(int) {
	if o.progress == nil {
		return nil
	}
	return func(pct int) { o.progress.SendProgress(int16(pct)) }
}

// ApplyOptions carries the flags of `Update apply`.
type ApplyOptions struct {
	PackagePath string // resolved .nupkg to apply; if a delta, it is resolved against the feed's full-chain first by the caller
	NoRestart   bool
	Wait        bool
	WaitPID     int32
	RestartArgs []string
}

// ApplyUpdates runs the full apply pipeline. It is always invoked by
// the updater binary, never by the running app itself.
func (o *Orchestrator) ApplyUpdates(ctx context.Context, loc *locator.Locator, oldManifest *manifest.Manifest, opts ApplyOptions) (err error) {
	logger := o.logger

	lock, err := applock.Acquire(oldManifest.ID)
	if err != nil {
		return err
	}
	defer lock.Release()

	if loc.NeedsMigration {
		if err := MigrateLegacyLayout(loc); err != nil {
			return fmt.Errorf("update: migrating legacy layout: %w", err)
		}
	}

	// 1. Open the downloaded package; read its manifest; construct the new
	// locator.
	newBundle, err := bundle.OpenPackage(opts.PackagePath)
	if err != nil {
		return fmt.Errorf("%w: %v", operr.ErrBundleCorrupt, err)
	}
	defer newBundle.Close()

	newNuspec, err := newBundle.ReadManifest()
	if err != nil {
		return fmt.Errorf("update: reading new package manifest: %w", err)
	}
	newManifest, err := manifest.Parse(newNuspec, runtime.GOOS == "windows")
	if err != nil {
		return fmt.Errorf("update: parsing new package manifest: %w", err)
	}
	newLoc := loc.WithManifestVersion(newManifest)

	// 2. Run prerequisites (C12) for the new manifest, passing the old
	// version for dialog context.
	if err := o.resolvePrerequisites(ctx, newManifest, oldManifest.Version.String(), loc.RootDir, logger); err != nil {
		return err
	}

	// 3. Create staging directories.
	tmpNew := filepath.Join(loc.PackagesDir, "tmp_"+uuid.New().String()[:8])
	tmpOld := filepath.Join(loc.PackagesDir, "tmp_"+uuid.New().String()[:8])
	defer os.RemoveAll(tmpNew)
	defer os.RemoveAll(tmpOld)

	// 4. Extract the new package.
	var progressFn bundle.ProgressFunc
	if o.progress != nil {
		progressFn = func(pct int) { o.progress.SendProgress(int16(pct)) }
	}
	if err := newBundle.ExtractAppTree(tmpNew, progressFn); err != nil {
		return fmt.Errorf("update: extracting new package: %w", err)
	}

	// 5. Indeterminate mode for the non-deterministic work below.
	if o.progress != nil {
		o.progress.SendIndeterminate()
	}

	oldMainExe := filepath.Join(loc.CurrentBinDir, oldManifest.MainExe)

	// 6. Obsolete hook on the old exe.
	if oldManifest.MainExe != "" {
		if err := hook.Run(ctx, logger, oldMainExe, hook.SwitchObsolete, oldManifest.Version.String(), 15*time.Second); err != nil {
			level.Warn(logger).Log("msg", "obsolete hook failed", "err", err)
		}
	}

	// Wait for the launching app to exit before touching its tree: by
	// explicit pid when --waitPid was given, by our parent's identity when
	// --wait was; without either the app is assumed to have already exited.
	waitPID := opts.WaitPID
	if waitPID == 0 && opts.Wait {
		waitPID = int32(os.Getppid())
	}
	if waitPID != 0 {
		h, err := proc.Open(ctx, waitPID)
		if err != nil {
			return fmt.Errorf("update: opening wait pid: %w", err)
		}
		if err := h.WaitExit(ctx, 60*time.Second); err != nil {
			return fmt.Errorf("update: waiting for pid %d to exit: %w", waitPID, err)
		}
	}

	// 7. Force-stop processes in the install root.
	remaining, err := proc.StopAllInDirectory(ctx, loc.CurrentBinDir)
	if err != nil {
		return fmt.Errorf("update: stopping processes in install tree: %w", err)
	}
	if len(remaining) > 0 {
		var paths []string
		for _, m := range remaining {
			paths = append(paths, m.Path)
		}
		choice, err := o.prompter.LockedFolder(paths)
		if err != nil {
			return err
		}
		switch choice {
		case dialog.ChoiceLockedCancel:
			return operr.ErrUserCancelled
		case dialog.ChoiceRetry:
			if remaining, err = proc.StopAllInDirectory(ctx, loc.CurrentBinDir); err != nil {
				return fmt.Errorf("update: retry stopping processes: %w", err)
			}
		}
		// ChoiceContinue and a successful retry both fall through; any
		// surviving handles are left for the rename/robocopy step to
		// contend with.
		_ = remaining
	}

	// 8. Rename current -> tmp_<r2>. If the rename fails (shared file
	// handle races), fall back to mirror-copying the tree into the backup
	// slot and record that we are in mirror mode: the live directory could
	// not be moved, so the new tree must be mirrored over it in place.
	mirrorMode := false
	if err := os.Rename(loc.CurrentBinDir, tmpOld); err != nil {
		if err := mirrorCopy(loc.CurrentBinDir, tmpOld); err != nil {
			return fmt.Errorf("update: backing up current: %w", err)
		}
		mirrorMode = true
		level.Warn(logger).Log("msg", "rename of current failed, continuing in mirror mode")
	}

	// From here on, past the point of no return: an error restoring must
	// still attempt to leave the install in a working state, but subsequent
	// failures are reported as ErrUpdateApplyFatal, not rolled back silently.

	// 9. Rename tmp_<r1> -> current; in mirror mode, or when the rename
	// fails, mirror the new tree over instead. If the mirror also fails,
	// mirror the backup back to restore and bail.
	moveIn := func() error {
		if !mirrorMode {
			if err := os.Rename(tmpNew, loc.CurrentBinDir); err == nil {
				return nil
			}
		}
		return mirrorCopy(tmpNew, loc.CurrentBinDir)
	}
	if err := moveIn(); err != nil {
		if restoreErr := mirrorCopy(tmpOld, loc.CurrentBinDir); restoreErr != nil {
			return fmt.Errorf("%w: failed to move in new version and failed to restore old version: %v / %v", operr.ErrUpdateApplyFatal, err, restoreErr)
		}
		return fmt.Errorf("%w: failed to move in new version, old version restored: %v", operr.ErrUpdateApplyFatal, err)
	}

	if err := os.WriteFile(manifest.ManifestPath(newLoc.RootDir), newNuspec, 0o644); err != nil {
		level.Warn(logger).Log("msg", "failed to write manifest copy after swap", "err", err)
	}

	// 10. Adjust uninstall registry entry.
	if oldManifest.ID != newManifest.ID {
		if err := winreg.Remove(oldManifest.ID); err != nil {
			level.Warn(logger).Log("msg", "failed to remove old registry entry", "err", err)
		}
	}
	if !loc.IsPortable {
		entry := winreg.Entry{
			AppID:                newManifest.ID,
			DisplayIcon:          filepath.Join(newLoc.CurrentBinDir, newManifest.MainExe),
			DisplayName:          newManifest.Title,
			DisplayVersion:       winreg.DisplayVersionString(newManifest.Version),
			InstallDate:          time.Now().UTC().Format("20060102"),
			InstallLocation:      newLoc.RootDir,
			Publisher:            newManifest.Authors,
			UninstallString:      fmt.Sprintf(`"%s" --uninstall`, newLoc.UpdateExePath),
			QuietUninstallString: fmt.Sprintf(`"%s" --uninstall --silent`, newLoc.UpdateExePath),
		}
		if err := winreg.Write(entry); err != nil {
			level.Warn(logger).Log("msg", "failed to write uninstall registry entry", "err", err)
		}
	}
	if err := winreg.RegisterURLProtocols(oldManifest.CustomURLProtocols, newManifest.CustomURLProtocols, filepath.Join(newLoc.CurrentBinDir, newManifest.MainExe)); err != nil {
		level.Warn(logger).Log("msg", "failed to reconcile url protocols", "err", err)
	}

	// 11. Updated hook on the new exe.
	newMainExe := filepath.Join(newLoc.CurrentBinDir, newManifest.MainExe)
	if newManifest.MainExe != "" {
		if err := hook.Run(ctx, logger, newMainExe, hook.SwitchUpdated, newManifest.Version.String(), 15*time.Second); err != nil {
			level.Warn(logger).Log("msg", "updated hook failed", "err", err)
		}
	}

	// Record the applied-but-not-yet-relaunched slot; cleared again below
	// once the restart spawn succeeds.
	if store, storeErr := OpenStateStore(loc.RootDir); storeErr == nil {
		isDowngrade := newManifest.Version.LessThan(oldManifest.Version)
		if err := store.SetPendingRestart(newManifest.ID, newManifest.Version.String(), isDowngrade); err != nil {
			level.Warn(logger).Log("msg", "failed to record pending restart", "err", err)
		}
		store.Close()
	} else {
		level.Warn(logger).Log("msg", "failed to open state store", "err", storeErr)
	}

	// 12. Remove staging directories before reconciling shortcuts.
	os.RemoveAll(tmpNew)
	os.RemoveAll(tmpOld)

	// 13. Reconcile shortcuts with the old locator as previous.
	prevTarget := shortcut.Target{
		Title:         oldManifest.Title,
		MainExe:       oldMainExe,
		CurrentBinDir: loc.CurrentBinDir,
		AMUID:         oldManifest.ShortcutAMUID,
		Locations:     oldManifest.ShortcutLocations,
		InstallRoot:   loc.RootDir,
	}
	nextTarget := shortcut.Target{
		Title:         newManifest.Title,
		MainExe:       newMainExe,
		CurrentBinDir: newLoc.CurrentBinDir,
		AMUID:         newManifest.ShortcutAMUID,
		Locations:     newManifest.ShortcutLocations,
		InstallRoot:   newLoc.RootDir,
	}
	reconcileShortcuts(prevTarget, nextTarget, logger)

	// 14. Optionally restart.
	if !opts.NoRestart && newManifest.MainExe != "" {
		cmd := allowedcmd.AppMainExe(ctx, newMainExe, opts.RestartArgs...)
		cmd.Env = append(cmd.Environ(), "VELOPACK_RESTART=true")
		if err := cmd.Start(); err != nil {
			level.Warn(logger).Log("msg", "restart spawn failed", "err", err)
		} else if store, storeErr := OpenStateStore(loc.RootDir); storeErr == nil {
			if err := store.ClearPendingRestart(newManifest.ID); err != nil {
				level.Warn(logger).Log("msg", "failed to clear pending restart", "err", err)
			}
			store.Close()
		}
	}

	return nil
}

// resolvePrerequisites parses m's runtime-dependency tokens and runs C12
// against them, prompting for and installing anything missing before the
// new package is extracted. A malformed token is logged and skipped rather
// than failing the whole update -- it can't be checked or installed either
// way. A genuine installer failure is fatal, matching operr.ErrMissingPrerequisite.
func (o *Orchestrator) resolvePrerequisites(ctx context.Context, m *manifest.Manifest, dialogContext, rootDir string, logger log.Logger) error {
	if len(m.RuntimeDependencies) == 0 {
		return nil
	}

	var deps []prereq.Dependency
	for _, tok := range m.RuntimeDependencies {
		d, err := prereq.ParseToken(tok)
		if err != nil {
			level.Warn(logger).Log("msg", "skipping unparseable prerequisite token", "token", tok, "err", err)
			continue
		}
		deps = append(deps, d)
	}
	if len(deps) == 0 {
		return nil
	}

	scratch := manifest.TempDir(rootDir)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("update: creating prerequisite scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	installed, declined, err := prereq.New(runtime.GOARCH).Resolve(ctx, deps, o.prompter, dialogContext, scratch, logger)
	if err != nil {
		return fmt.Errorf("update: resolving prerequisites: %w", err)
	}
	for _, d := range declined {
		level.Warn(logger).Log("msg", "user declined prerequisite install", "token", d.Token)
	}
	for _, r := range installed {
		level.Info(logger).Log("msg", "installed prerequisite", "token", r.Dependency.Token, "restart_required", r.RestartRequired)
	}
	return nil
}

func reconcileShortcuts(prev, next shortcut.Target, logger log.Logger) {
	plan := shortcut.Diff(&prev, next)
	for _, loc := range plan.ToAdd {
		if err := shortcut.CreateOrUpdate(loc, next); err != nil {
			level.Warn(logger).Log("msg", "failed to add shortcut", "location", loc, "err", err)
		}
	}
	for _, loc := range plan.ToUpdate {
		if err := shortcut.CreateOrUpdate(loc, next); err != nil {
			level.Warn(logger).Log("msg", "failed to update shortcut", "location", loc, "err", err)
		}
	}
	if plan.Rename {
		if err := shortcut.RenameMatching(prev, next); err != nil {
			level.Warn(logger).Log("msg", "failed to rename shortcut for new title", "err", err)
		}
	}
	for _, loc := range plan.ToRemove {
		if err := shortcut.Remove(loc, prev.Title); err != nil {
			level.Warn(logger).Log("msg", "failed to remove shortcut", "location", loc, "err", err)
		}
	}
}

// MigrateLegacyLayout renames the highest-versioned legacy "app-<semver>"
// directory to current; the apply that follows then brings the tree up to
// date from the latest full package. A root that already has a current
// directory is left untouched.
func MigrateLegacyLayout(loc *locator.Locator) error {
	if _, err := os.Stat(loc.CurrentBinDir); err == nil {
		return nil
	}
	dirs, err := locator.LegacyAppDirs(loc.RootDir)
	if err != nil || len(dirs) == 0 {
		return err
	}
	return os.Rename(dirs[len(dirs)-1], loc.CurrentBinDir)
}

// ResolvePackage decides, given the selected asset and the packages
// already on disk, whether the downloaded asset can be applied directly or
// must first be composed through internal/delta against the current full
// package; the apply pipeline only ever consumes full packages.
func ResolvePackage(packagesDir string, asset feed.Asset, currentFullPath string, deltaChain []delta.Delta, scratchDir string) (string, error) {
	if asset.Type == feed.TypeFull {
		return filepath.Join(packagesDir, asset.FileName), nil
	}

	output := filepath.Join(packagesDir, asset.PackageID+"-"+asset.Version+"-full.nupkg")
	if err := delta.Apply(currentFullPath, deltaChain, output, scratchDir); err != nil {
		return "", fmt.Errorf("update: composing delta chain: %w", err)
	}
	return output, nil
}
