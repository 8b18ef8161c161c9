// Command update is Update.exe: the per-install management binary that
// applies a downloaded full package, starts the installed app, applies a
// single delta package to a full package (patch), prints the installed
// version, and uninstalls.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Masterminds/semver"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"

	"github.com/velopack/velogo/internal/allowedcmd"
	"github.com/velopack/velogo/internal/bundle"
	"github.com/velopack/velogo/internal/delta"
	"github.com/velopack/velogo/internal/locator"
	"github.com/velopack/velogo/internal/manifest"
	"github.com/velopack/velogo/internal/proc"
	"github.com/velopack/velogo/internal/uninstall"
	"github.com/velopack/velogo/internal/update"
)

func main() {
	args := translateLegacyArgs(os.Args[1:])
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: update <apply|start|patch|get-version|uninstall> [flags]")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch args[0] {
	case "apply":
		err = cmdApply(ctx, args[1:])
	case "start":
		err = cmdStart(ctx, args[1:])
	case "patch":
		err = cmdPatch(args[1:])
	case "get-version":
		err = cmdGetVersion(args[1:])
	case "uninstall":
		err = cmdUninstall(ctx, args[1:])
	default:
		err = fmt.Errorf("unknown subcommand %q", args[0])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// translateLegacyArgs rewrites the handful of legacy Squirrel flag shapes
// (--processStart, --processStartAndWait, --processStartArgs, and any
// "--flag=value" token) into their modern equivalents before the real
// subcommand flag sets see them. Only tokens before a literal "--" are
// ever rewritten; nothing after it is touched.
func translateLegacyArgs(args []string) []string {
	// First split "--flag=value" tokens so an equals-form legacy alias
	// still gets rewritten below.
	var split []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			split = append(split, args[i:]...)
			break
		}
		if len(a) > 2 && a[:2] == "--" && indexOfEquals(a) >= 0 {
			eq := indexOfEquals(a)
			split = append(split, a[:eq], a[eq+1:])
			continue
		}
		split = append(split, a)
	}

	var out []string
	for i := 0; i < len(split); i++ {
		a := split[i]
		if a == "--" {
			out = append(out, split[i:]...)
			break
		}
		switch a {
		case "--processStart":
			out = append(out, "start")
		case "--processStartAndWait":
			out = append(out, "start", "--wait")
		case "--processStartArgs":
			out = append(out, "-a")
		case "--uninstall":
			out = append(out, "uninstall")
		default:
			out = append(out, a)
		}
	}
	return out
}

func indexOfEquals(s string) int {
	for i, c := range s {
		if c == '=' {
			return i
		}
	}
	return -1
}

func currentLocator() (*locator.Locator, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return locator.Discover(exe)
}

func currentManifest(loc *locator.Locator) (*manifest.Manifest, error) {
	raw, err := os.ReadFile(loc.ManifestPath)
	if err == nil {
		return manifest.Parse(raw, true)
	}

	// current/sq.version is missing (an interrupted install, or a legacy
	// layout): fall back to the manifest embedded in the highest-versioned
	// full package on disk.
	pkg, perr := latestFullPackage(loc.PackagesDir)
	if perr != nil {
		return nil, err
	}
	r, perr := bundle.OpenPackage(pkg)
	if perr != nil {
		return nil, perr
	}
	defer r.Close()
	nuspec, perr := r.ReadManifest()
	if perr != nil {
		return nil, perr
	}
	return manifest.Parse(nuspec, true)
}

func cmdApply(ctx context.Context, args []string) error {
	flagset := flag.NewFlagSet("apply", flag.ContinueOnError)
	flPackage := flagset.String("package", "", "path to the full package to apply (-p)")
	flPackageP := flagset.String("p", "", "shorthand for -package")
	flNoRestart := flagset.Bool("norestart", false, "don't relaunch the app after applying")
	flWait := flagset.Bool("wait", false, "wait for the running app to exit before applying")
	flWaitPid := flagset.Int("waitPid", 0, "wait for this specific pid to exit before applying")
	restartArgs, pre := splitOnDoubleDash(args)
	if err := ff.Parse(flagset, pre); err != nil {
		return errors.Wrap(err, "parsing apply flags")
	}

	loc, err := currentLocator()
	if err != nil {
		return errors.Wrap(err, "locating install")
	}
	oldManifest, err := currentManifest(loc)
	if err != nil {
		return errors.Wrap(err, "reading current manifest")
	}

	pkg := firstNonEmpty(*flPackage, *flPackageP)
	if pkg == "" {
		pkg, err = latestFullPackage(loc.PackagesDir)
		if err != nil {
			return errors.Wrap(err, "apply: no -package given and no full package found in packages dir")
		}
	}

	orch := update.New()
	return orch.ApplyUpdates(ctx, loc, oldManifest, update.ApplyOptions{
		PackagePath: pkg,
		NoRestart:   *flNoRestart,
		Wait:        *flWait,
		WaitPID:     int32(*flWaitPid),
		RestartArgs: restartArgs,
	})
}

func cmdStart(ctx context.Context, args []string) error {
	flagset := flag.NewFlagSet("start", flag.ContinueOnError)
	flWait := flagset.Bool("wait", false, "wait for the parent process to exit first")
	flWaitPid := flagset.Int("waitPid", 0, "wait for this specific pid to exit first")
	flLegacyArgs := flagset.String("a", "", "legacy single-string arguments for the app")
	exeArgs, pre := splitOnDoubleDash(args)
	if err := ff.Parse(flagset, pre); err != nil {
		return errors.Wrap(err, "parsing start flags")
	}

	loc, err := currentLocator()
	if err != nil {
		return errors.Wrap(err, "locating install")
	}
	m, err := currentManifest(loc)
	if err != nil {
		return errors.Wrap(err, "reading current manifest")
	}

	if *flWait || *flWaitPid > 0 {
		pid := int32(*flWaitPid)
		if pid == 0 {
			pid = int32(os.Getppid())
		}
		if h, err := proc.Open(ctx, pid); err == nil {
			h.WaitExit(ctx, 60*time.Second)
		}
	}

	// An explicit exe name overrides the manifest's main exe; it must still
	// resolve inside the current bin dir.
	exeName := m.MainExe
	if flagset.NArg() > 0 {
		exeName = flagset.Arg(0)
	}
	exePath := filepath.Join(loc.CurrentBinDir, exeName)
	if !proc.IsSubPath(exePath, loc.CurrentBinDir) {
		return errors.Errorf("start: %q does not resolve inside the install", exeName)
	}

	if *flLegacyArgs != "" && len(exeArgs) == 0 {
		exeArgs = []string{*flLegacyArgs}
	}

	cmd := allowedcmd.AppMainExe(ctx, exePath, exeArgs...)
	return cmd.Start()
}

func cmdPatch(args []string) error {
	flagset := flag.NewFlagSet("patch", flag.ContinueOnError)
	flOld := flagset.String("old", "", "path to the old full package")
	flPatch := flagset.String("patch", "", "path to the delta package")
	flOutput := flagset.String("output", "", "path to write the reconstructed full package")
	if err := ff.Parse(flagset, args); err != nil {
		return errors.Wrap(err, "parsing patch flags")
	}
	if *flOld == "" || *flPatch == "" || *flOutput == "" {
		return errors.New("patch: -old, -patch, and -output are all required")
	}

	scratch, err := os.MkdirTemp("", "velogo-patch-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	return delta.Apply(*flOld, []delta.Delta{{PackagePath: *flPatch}}, *flOutput, scratch)
}

func cmdGetVersion(args []string) error {
	loc, err := currentLocator()
	if err != nil {
		return errors.Wrap(err, "locating install")
	}
	m, err := currentManifest(loc)
	if err != nil {
		return errors.Wrap(err, "reading current manifest")
	}
	fmt.Println(m.Version.String())
	return nil
}

func cmdUninstall(ctx context.Context, args []string) error {
	flagset := flag.NewFlagSet("uninstall", flag.ContinueOnError)
	flLog := flagset.String("log", "", "path to write the uninstall log")
	flagset.Bool("silent", false, "suppress dialogs")
	if err := ff.Parse(flagset, args); err != nil {
		return errors.Wrap(err, "parsing uninstall flags")
	}

	loc, err := currentLocator()
	if err != nil {
		return errors.Wrap(err, "locating install")
	}
	m, err := currentManifest(loc)
	if err != nil {
		return errors.Wrap(err, "reading current manifest")
	}

	orch := uninstall.New()
	result, err := orch.Uninstall(ctx, loc, m, *flLog)
	if err != nil {
		return err
	}
	os.Exit(result.ExitCode())
	return nil
}

// latestFullPackage picks the highest-versioned *-full.nupkg in dir.
func latestFullPackage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var best string
	var bestVer *semver.Version
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		_, ver, kind, err := manifest.ParseFileName(e.Name())
		if err != nil || kind != manifest.KindFull {
			continue
		}
		if bestVer == nil || ver.GreaterThan(bestVer) {
			best = filepath.Join(dir, e.Name())
			bestVer = ver
		}
	}
	if best == "" {
		return "", errors.Errorf("no full package in %s", dir)
	}
	return best, nil
}

func splitOnDoubleDash(args []string) (after, before []string) {
	for i, a := range args {
		if a == "--" {
			return args[i+1:], args[:i]
		}
	}
	return nil, args
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
