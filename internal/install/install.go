// Package install implements the install orchestrator (C9): pre-flight
// checks, destination resolution, elevation, the rename-away rollback
// reservoir, extraction, shortcuts, the first lifecycle hook, the
// uninstall-registry entry, and the first-run spawn.
package install

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

	"github.com/velopack/velogo/internal/allowedcmd"
	"github.com/velopack/velogo/internal/applock"
	"github.com/velopack/velogo/internal/bundle"
	"github.com/velopack/velogo/internal/dialog"
	"github.com/velopack/velogo/internal/hook"
	"github.com/velopack/velogo/internal/manifest"
	"github.com/velopack/velogo/internal/operr"
	"github.com/velopack/velogo/internal/prereq"
	"github.com/velopack/velogo/internal/proc"
	"github.com/velopack/velogo/internal/shortcut"
	"github.com/velopack/velogo/internal/winreg"
)

// Options carries the Setup CLI's user-facing flags through to the
// orchestrator.
type Options struct {
	InstallTo    string // --installto; "" derives %LocalAppData%/<id>
	Silent       bool
	FirstRunArgs []string
}

// Orchestrator runs a single install operation.
type Orchestrator struct {
	logger      log.Logger
	prompter    dialog.Prompter
	progress    *dialog.Stream
	isWindows11 bool
	hostArch    string
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
	o := &Orchestrator{
		logger:      log.NewNopLogger(),
		prompter:    dialog.SilentPrompter{},
		hostArch:    runtime.GOARCH,
		isWindows11: detectWindows11(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func defaultInstallRoot(appID string) (string, error) {
	localAppData := os.Getenv("LocalAppData")
	if localAppData == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		localAppData = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(localAppData, appID), nil
}

// Install runs the full install sequence against a freshly opened
// bundle reader.
func (o *Orchestrator) Install(ctx context.Context, bndl *bundle.Reader, opts Options) (err error) {
	logger := o.logger

	nuspec, err := bndl.ReadManifest()
	if err != nil {
		return fmt.Errorf("install: reading manifest: %w", err)
	}
	m, err := manifest.Parse(nuspec, runtime.GOOS == "windows")
	if err != nil {
		return fmt.Errorf("install: parsing manifest: %w", err)
	}

	// 1. Pre-flight.
	if err := CheckArchitecture(o.hostArch, m.MachineArchitecture, o.isWindows11); err != nil {
		return err
	}
	if err := CheckOSVersion(hostOSVersion(), m.OSMinVersion); err != nil {
		return err
	}

	// 2. Destination.
	root := opts.InstallTo
	if root == "" {
		root, err = defaultInstallRoot(m.ID)
		if err != nil {
			return fmt.Errorf("install: resolving default destination: %w", err)
		}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("install: creating destination %s: %w", root, err)
	}

	// 3. Disk-space check.
	compressed, uncompressed := bndl.CalculateSize()
	if err := CheckDiskSpace(root, compressed, uncompressed); err != nil {
		return err
	}

	// 3b. Prerequisites (C12): resolve the new manifest's runtime
	// dependencies before anything is extracted. Fresh installs have no
	// prior version, so no dialog context is passed.
	if err := o.resolvePrerequisites(ctx, m, root, logger); err != nil {
		return err
	}

	// 4. Elevation.
	if !isWritable(filepath.Dir(root)) {
		level.Info(logger).Log("msg", "destination parent not writable, relaunching elevated")
		if err := proc.RelaunchSelfAsAdmin(os.Args[1:]); err != nil {
			return fmt.Errorf("install: elevation relaunch failed: %w", err)
		}
		return nil
	}

	// 5. Exclusive lock.
	lock, err := applock.Acquire(m.ID)
	if err != nil {
		return err
	}
	defer lock.Release()

	currentDir := manifest.CurrentBinDir(root)
	reservoir := ""

	// 6/7. Overwrite decision + rename-away.
	nonEmpty, err := dirHasEntries(currentDir)
	if err != nil {
		return fmt.Errorf("install: inspecting destination: %w", err)
	}
	if nonEmpty && !hasTombstone(root) {
		choice, err := o.prompter.Overwrite(installedVersion(root), m.Version.String())
		if err != nil {
			return err
		}
		if choice == dialog.ChoiceCancel {
			return operr.ErrUserCancelled
		}

		reservoir = fmt.Sprintf("%s_%s", root, uuid.New().String()[:8])
		if err := os.MkdirAll(reservoir, 0o755); err != nil {
			return fmt.Errorf("install: creating rollback reservoir: %w", err)
		}
		if err := os.Rename(currentDir, filepath.Join(reservoir, "current")); err != nil {
			return fmt.Errorf("install: renaming existing install into reservoir: %w", err)
		}
	}

	rollback := func() {
		proc.StopAllInDirectory(ctx, currentDir)
		os.RemoveAll(currentDir)
		if reservoir != "" {
			os.Rename(filepath.Join(reservoir, "current"), currentDir)
			os.RemoveAll(reservoir)
		}
	}

	// 8. Extract.
	var progressFn bundle.ProgressFunc
	if o.progress != nil {
		progressFn = func(pct int) { o.progress.SendProgress(int16(pct)) }
	}
	if err := bndl.ExtractAppTree(currentDir, progressFn); err != nil {
		rollback()
		return fmt.Errorf("install: extracting app tree: %w", err)
	}

	// 9. Post-extract checks.
	mainExePath := filepath.Join(currentDir, m.MainExe)
	if m.MainExe != "" {
		if _, err := os.Stat(mainExePath); err != nil {
			rollback()
			return fmt.Errorf("%w: main_exe %s missing after extraction", operr.ErrBundleCorrupt, m.MainExe)
		}
	}
	if err := os.WriteFile(manifest.ManifestPath(root), nuspec, 0o644); err != nil {
		rollback()
		return fmt.Errorf("install: writing manifest copy: %w", err)
	}
	if err := bndl.CopyToFile(filepath.Join(manifest.PackagesDir(root), m.PackageFileName())); err != nil {
		rollback()
		return fmt.Errorf("install: writing package copy: %w", err)
	}
	if err := bndl.ExtractUpdateExe(manifest.UpdateExePath(root)); err != nil {
		rollback()
		return fmt.Errorf("%w: %v", operr.ErrMissingUpdateExe, err)
	}

	// 10. Shortcuts.
	target := shortcut.Target{
		Title:         m.Title,
		MainExe:       mainExePath,
		CurrentBinDir: currentDir,
		AMUID:         m.ShortcutAMUID,
		Locations:     m.ShortcutLocations,
		InstallRoot:   root,
	}
	plan := shortcut.Diff(nil, target)
	for _, loc := range plan.ToAdd {
		if err := shortcut.CreateOrUpdate(loc, target); err != nil {
			level.Warn(logger).Log("msg", "failed to create shortcut", "location", loc, "err", err)
		}
	}

	// 11. First hook.
	if m.MainExe != "" {
		if err := hook.Run(ctx, logger, mainExePath, hook.SwitchInstall, m.Version.String(), 30*time.Second); err != nil {
			level.Warn(logger).Log("msg", "install hook failed", "err", err)
		}
	}

	// 12. Registry.
	if err := writeUninstallEntry(root, m); err != nil {
		level.Warn(logger).Log("msg", "failed to write uninstall registry entry", "err", err)
	}
	if err := winreg.RegisterURLProtocols(nil, m.CustomURLProtocols, mainExePath); err != nil {
		level.Warn(logger).Log("msg", "failed to register url protocols", "err", err)
	}

	// 13. Commit.
	if reservoir != "" {
		os.RemoveAll(reservoir)
	}

	// 14. First run.
	if !opts.Silent && m.MainExe != "" {
		cmd := allowedcmd.AppMainExe(ctx, mainExePath, opts.FirstRunArgs...)
		cmd.Env = append(cmd.Environ(), "VELOPACK_FIRSTRUN=true")
		if err := cmd.Start(); err != nil {
			level.Warn(logger).Log("msg", "first-run spawn failed", "err", err)
		}
	}

	return nil
}

// resolvePrerequisites parses m's runtime-dependency tokens and runs C12
// against them before extraction. A malformed token is logged and skipped
// rather than failing the whole install. A genuine installer failure is
// fatal.
func (o *Orchestrator) resolvePrerequisites(ctx context.Context, m *manifest.Manifest, root string, logger log.Logger) error {
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

	scratch := manifest.TempDir(root)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("install: creating prerequisite scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	installed, declined, err := prereq.New(o.hostArch).Resolve(ctx, deps, o.prompter, "", scratch, logger)
	if err != nil {
		return fmt.Errorf("install: resolving prerequisites: %w", err)
	}
	for _, d := range declined {
		level.Warn(logger).Log("msg", "user declined prerequisite install", "token", d.Token)
	}
	for _, r := range installed {
		level.Info(logger).Log("msg", "installed prerequisite", "token", r.Dependency.Token, "restart_required", r.RestartRequired)
	}
	return nil
}

func writeUninstallEntry(root string, m *manifest.Manifest) error {
	mainExePath := filepath.Join(manifest.CurrentBinDir(root), m.MainExe)
	updateExe := manifest.UpdateExePath(root)

	entry := winreg.Entry{
		AppID:                m.ID,
		DisplayIcon:          mainExePath,
		DisplayName:          m.Title,
		DisplayVersion:       winreg.DisplayVersionString(m.Version),
		InstallDate:          time.Now().UTC().Format("20060102"),
		InstallLocation:      root,
		Publisher:            m.Authors,
		UninstallString:      fmt.Sprintf(`"%s" --uninstall`, updateExe),
		QuietUninstallString: fmt.Sprintf(`"%s" --uninstall --silent`, updateExe),
		EstimatedSizeKB:      uint64(dirSizeBytes(root) / 1024),
	}
	return winreg.Write(entry)
}

func dirHasEntries(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return len(entries) > 0, nil
}

// installedVersion reads the version string of whatever is already in the
// destination, for the overwrite/repair/downgrade prompt. Empty when there
// is no readable manifest there.
func installedVersion(root string) string {
	raw, err := os.ReadFile(manifest.ManifestPath(root))
	if err != nil {
		return ""
	}
	m, err := manifest.Parse(raw, false)
	if err != nil {
		return ""
	}
	return m.Version.String()
}

func hasTombstone(root string) bool {
	_, err := os.Stat(filepath.Join(root, ".dead"))
	return err == nil
}

func dirSizeBytes(root string) int64 {
	var total int64
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

func isWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".velogo-writetest-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
