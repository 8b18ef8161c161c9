// Command setup is the bundled installer entrypoint fused onto the front of
// a release bundle. It installs the app into its root
// directory and runs the first-run spawn on completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"

	"github.com/velopack/velogo/internal/bundle"
	"github.com/velopack/velogo/internal/dialog"
	"github.com/velopack/velogo/internal/install"
)

type setupOptions struct {
	Silent    bool
	Verbose   bool
	LogPath   string
	InstallTo string
	Bootstrap bool
	Debug     string // debug-only: path to a loose .nupkg instead of the fused bundle
	AppArgs   []string
}

func main() {
	opts, err := parseSetupOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newCLILogger(opts.LogPath, opts.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runSetup(ctx, logger, opts); err != nil {
		level.Error(logger).Log("msg", "setup failed", "err", err)
		os.Exit(1)
	}
}

func parseSetupOptions(args []string) (*setupOptions, error) {
	flagset := flag.NewFlagSet("setup", flag.ContinueOnError)

	var (
		flSilent     = flagset.Bool("silent", false, "run without any UI and accept every prompt")
		flSilentS    = flagset.Bool("s", false, "shorthand for -silent")
		flVerbose    = flagset.Bool("verbose", false, "enable verbose logging")
		flVerboseV   = flagset.Bool("v", false, "shorthand for -verbose")
		flLog        = flagset.String("log", "", "write logs to this file instead of stderr")
		flLogL       = flagset.String("l", "", "shorthand for -log")
		flInstallTo  = flagset.String("installto", "", "override the install root directory")
		flInstallT   = flagset.String("t", "", "shorthand for -installto")
		flBootstrap  = flagset.Bool("bootstrap", false, "accepted for compatibility; has no effect on the install")
		flBootstrapB = flagset.Bool("b", false, "shorthand for -bootstrap")
		flDebug      = flagset.String("debug", "", "debug-only: path to a loose .nupkg to install instead of the fused bundle")
		flDebugD     = flagset.String("d", "", "shorthand for -debug")
	)

	appArgs, preArgs := splitOnDoubleDash(args)
	if err := ff.Parse(flagset, preArgs); err != nil {
		return nil, errors.Wrap(err, "parsing setup flags")
	}

	return &setupOptions{
		Silent:    *flSilent || *flSilentS || os.Getenv("VELOPACK_SILENT") != "",
		Verbose:   *flVerbose || *flVerboseV,
		LogPath:   firstNonEmpty(*flLog, *flLogL),
		InstallTo: firstNonEmpty(*flInstallTo, *flInstallT),
		Bootstrap: *flBootstrap || *flBootstrapB,
		Debug:     firstNonEmpty(*flDebug, *flDebugD),
		AppArgs:   appArgs,
	}, nil
}

// splitOnDoubleDash separates the trailing "-- <args...>" passthrough
// (forwarded verbatim to the installed app's first run) from the flags that
// setup itself parses. Nothing after "--" is ever treated as a flag.
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

func newCLILogger(logPath string, verbose bool) log.Logger {
	out := os.Stderr
	if logPath != "" {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}
	logger := log.NewJSONLogger(log.NewSyncWriter(out))
	if verbose {
		logger = level.NewFilter(logger, level.AllowAll())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

func runSetup(ctx context.Context, logger log.Logger, opts *setupOptions) error {
	exePath, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "locating fused bundle")
	}

	bndl, err := bundle.Open(exePath, opts.Debug)
	if err != nil {
		return errors.Wrap(err, "opening bundle")
	}
	defer bndl.Close()

	// Interactive dialogs aren't implemented by this CLI; every prompt
	// currently answers the same way -silent does, so both modes drive the
	// same deterministic install path.
	orch := install.New(install.WithLogger(logger), install.WithPrompter(dialog.SilentPrompter{}))

	if err := orch.Install(ctx, bndl, install.Options{
		InstallTo:    opts.InstallTo,
		Silent:       opts.Silent,
		FirstRunArgs: opts.AppArgs,
	}); err != nil {
		return errors.Wrap(err, "install")
	}

	level.Info(logger).Log("msg", "install complete")
	return nil
}
