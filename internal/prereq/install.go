package prereq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/velopack/velogo/internal/allowedcmd"
	"github.com/velopack/velogo/internal/dialog"
	"github.com/velopack/velogo/internal/operr"
)

var errUnsupportedOnPlatform = errors.New("prereq: no bootstrapper installer exists for this dependency on this platform")

// InstallResult records the outcome of running one dependency's bootstrapper.
type InstallResult struct {
	Dependency      Dependency
	Outcome         InstallOutcome
	RestartRequired bool
}

// Resolve checks missing deps against the host, asks the caller's Prompter
// once per missing dependency (skipping any the user or silent mode
// declines), downloads each confirmed dependency's bootstrapper to scratchDir
// and runs it, and classifies the result.
//
// dialogContext is shown alongside each dependency's token in the prompt --
// the update orchestrator passes the old version here so the user sees what
// they're updating from; installers with no prior
// version pass "".
//
// A dependency declined by the Prompter is reported back in declined and is
// not installed; this does not itself fail the operation --
// the caller decides whether a declined prerequisite blocks the app launch.
func (r *Resolver) Resolve(ctx context.Context, deps []Dependency, prompter dialog.Prompter, dialogContext, scratchDir string, logger log.Logger) (installed []InstallResult, declined []Dependency, err error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	missing, err := r.Check(ctx, deps)
	if err != nil {
		return nil, nil, err
	}
	if len(missing) == 0 {
		return nil, nil, nil
	}

	for _, d := range missing {
		name := d.Token
		if dialogContext != "" {
			name = fmt.Sprintf("%s (updating from %s)", d.Token, dialogContext)
		}
		ok, err := prompter.ConfirmPrerequisiteInstall(name)
		if err != nil {
			return installed, declined, err
		}
		if !ok {
			declined = append(declined, d)
			continue
		}

		res, err := r.installOne(ctx, d, scratchDir, logger)
		if err != nil {
			return installed, declined, err
		}
		installed = append(installed, res)
	}

	return installed, declined, nil
}

func (r *Resolver) installOne(ctx context.Context, d Dependency, scratchDir string, logger log.Logger) (InstallResult, error) {
	url, err := bootstrapperURL(d)
	if err != nil {
		return InstallResult{}, fmt.Errorf("prereq: %s: %w", d.Token, operr.ErrMissingPrerequisite)
	}
	if strings.HasSuffix(url, "latest.version") {
		url, err = resolveLatestVersionURL(ctx, url, d)
		if err != nil {
			return InstallResult{}, fmt.Errorf("prereq: resolving %s build: %w", d.Token, err)
		}
	}

	installerPath := filepath.Join(scratchDir, d.Token+".exe")
	if err := downloadFile(ctx, url, installerPath); err != nil {
		return InstallResult{}, fmt.Errorf("prereq: downloading %s bootstrapper: %w", d.Token, err)
	}
	defer os.Remove(installerPath)

	level.Info(logger).Log("msg", "running prerequisite installer", "token", d.Token, "path", installerPath)

	cmd := allowedcmd.DownloadedInstaller(ctx, installerPath, silentInstallArgs(d)...)
	runErr := cmd.Run()

	code := exitCodeOf(runErr)
	outcome := InterpretExitCode(code)

	switch outcome {
	case OutcomeUserFacingError:
		return InstallResult{Dependency: d, Outcome: outcome}, fmt.Errorf("prereq: %s: %s", d.Token, UserFacingError(code))
	case OutcomeGenericFailure:
		return InstallResult{Dependency: d, Outcome: outcome}, fmt.Errorf("prereq: %s: installer exited with code %d: %w", d.Token, code, operr.ErrMissingPrerequisite)
	}

	return InstallResult{Dependency: d, Outcome: outcome, RestartRequired: outcome == OutcomeSuccessRestartRequired}, nil
}

// resolveLatestVersionURL fetches the latest.version pointer published
// alongside a .NET build channel and derives the concrete installer URL
// from the version it names.
func resolveLatestVersionURL(ctx context.Context, versionURL string, d Dependency) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s fetching %s", resp.Status, versionURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return "", fmt.Errorf("%s is empty", versionURL)
	}
	// The file's last field is the concrete build version; earlier lines
	// carry the commit hash.
	version := fields[len(fields)-1]

	base := strings.TrimSuffix(versionURL, "latest.version")
	base = strings.TrimSuffix(base, d.Arch+"/")
	return fmt.Sprintf("%s%s/%s-%s-win-%s.exe", base, version, installerBaseName(d.Flavor), version, d.Arch), nil
}

func installerBaseName(flavor string) string {
	switch flavor {
	case "aspnetcore":
		return "aspnetcore-runtime"
	case "windowsdesktop":
		return "windowsdesktop-runtime"
	case "sdk":
		return "dotnet-sdk"
	default:
		return "dotnet-runtime"
	}
}

// silentInstallArgs returns the flag each bootstrapper family needs to run
// unattended; this process never shows the vendor's own installer UI.
func silentInstallArgs(d Dependency) []string {
	switch d.Kind {
	case KindVCRedist:
		return []string{"/install", "/quiet", "/norestart"}
	case KindWebView2:
		return []string{"/silent", "/install"}
	case KindNetFramework, KindNetModern:
		return []string{"/q", "/norestart"}
	default:
		return nil
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prereq: downloading %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}
