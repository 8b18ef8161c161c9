// Package prereq parses the runtime-dependency tokens carried on a
// manifest, checks whether each is already satisfied on the host, and
// drives the download-and-run of whichever bootstrapper installers are
// missing.
package prereq

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver"
)

// Kind identifies which dependency family a token names.
type Kind int

const (
	KindNetFramework Kind = iota // legacy net4x, identified by registry release DWORD
	KindNetModern                // net5+ runtime/aspnetcore/windowsdesktop/sdk
	KindVCRedist
	KindWebView2
)

// Dependency is one parsed runtime-dependency token.
type Dependency struct {
	Token   string
	Kind    Kind
	Version *semver.Version // nil for net4x (fx-version is not semver) and webview2
	Arch    string          // "x86", "x64", "arm64"; "" when the token has none
	Flavor  string          // "runtime", "aspnetcore", "windowsdesktop", "sdk" for KindNetModern
	FxVer   string          // raw "{fx-version}" digits for KindNetFramework, e.g. "472"
}

// ParseToken parses one manifest runtimeDependencies entry.
func ParseToken(tok string) (Dependency, error) {
	tok = strings.TrimSpace(tok)
	switch {
	case tok == "webview2":
		return Dependency{Token: tok, Kind: KindWebView2}, nil
	case strings.HasPrefix(tok, "vcredist"):
		return parseVCRedist(tok)
	case strings.HasPrefix(tok, "net"):
		return parseNet(tok)
	default:
		return Dependency{}, fmt.Errorf("prereq: unrecognized dependency token %q", tok)
	}
}

// parseVCRedist parses "vcredist{MMm}-{arch}", e.g. "vcredist143-x64".
func parseVCRedist(tok string) (Dependency, error) {
	rest := strings.TrimPrefix(tok, "vcredist")
	parts := strings.SplitN(rest, "-", 2)
	if len(parts) != 2 || len(parts[0]) < 2 {
		return Dependency{}, fmt.Errorf("prereq: malformed vcredist token %q", tok)
	}

	major, err := strconv.Atoi(parts[0][:2])
	if err != nil {
		return Dependency{}, fmt.Errorf("prereq: malformed vcredist major version in %q: %w", tok, err)
	}
	minor := 0
	if len(parts[0]) > 2 {
		minor, err = strconv.Atoi(parts[0][2:])
		if err != nil {
			return Dependency{}, fmt.Errorf("prereq: malformed vcredist minor version in %q: %w", tok, err)
		}
	}
	v, err := semver.NewVersion(fmt.Sprintf("%d.%d.0", major, minor))
	if err != nil {
		return Dependency{}, err
	}

	return Dependency{Token: tok, Kind: KindVCRedist, Version: v, Arch: parts[1]}, nil
}

// parseNet parses either the legacy "net{fx-version}" form (e.g. "net472")
// or the modern "net{N}[.{M}]-{arch}-{kind}" form (e.g. "net8.0-x64-runtime").
func parseNet(tok string) (Dependency, error) {
	rest := strings.TrimPrefix(tok, "net")

	if !strings.Contains(rest, "-") {
		// Legacy net4x: digits only, e.g. "472".
		if rest == "" {
			return Dependency{}, fmt.Errorf("prereq: malformed net token %q", tok)
		}
		return Dependency{Token: tok, Kind: KindNetFramework, FxVer: rest}, nil
	}

	parts := strings.Split(rest, "-")
	if len(parts) != 3 {
		return Dependency{}, fmt.Errorf("prereq: malformed net token %q", tok)
	}

	verStr := parts[0]
	if !strings.Contains(verStr, ".") {
		verStr += ".0"
	}
	v, err := semver.NewVersion(verStr + ".0")
	if err != nil {
		return Dependency{}, fmt.Errorf("prereq: malformed net version in %q: %w", tok, err)
	}

	return Dependency{Token: tok, Kind: KindNetModern, Version: v, Arch: parts[1], Flavor: parts[2]}, nil
}

// dotnetArchDir resolves the directory an arch requests under
// %ProgramFiles%\dotnet\..., applying the arm64-host-requesting
// -x64 special case.
func dotnetArchDir(hostArch, requestedArch string) string {
	if hostArch == "arm64" && requestedArch == "x64" {
		return "x64"
	}
	return ""
}

// InstallOutcome classifies a prerequisite installer's exit code.
type InstallOutcome int

const (
	OutcomeSuccess InstallOutcome = iota
	OutcomeSuccessRestartRequired
	OutcomeUserFacingError
	OutcomeGenericFailure
)

// InterpretExitCode classifies a bootstrapper's process exit code.
func InterpretExitCode(code int) InstallOutcome {
	switch code {
	case 0, 1638:
		return OutcomeSuccess
	case 3010, 1641:
		return OutcomeSuccessRestartRequired
	case 1602, 1618, 5100:
		return OutcomeUserFacingError
	default:
		return OutcomeGenericFailure
	}
}

// userFacingErrorMessages maps the three distinct user-facing error codes
// to the message shown in the dialog.
var userFacingErrorMessages = map[int]string{
	1602: "The prerequisite installer was cancelled.",
	1618: "Another installation is already in progress. Please wait for it to finish and try again.",
	5100: "This prerequisite is not supported on your version of Windows.",
}

// UserFacingError returns the message for a code classified as
// OutcomeUserFacingError, or "" if code isn't one of the three known codes.
func UserFacingError(code int) string {
	return userFacingErrorMessages[code]
}

// Resolver checks and installs missing prerequisites for a manifest's
// runtime dependencies.
type Resolver struct {
	hostArch string
}

func New(hostArch string) *Resolver {
	return &Resolver{hostArch: hostArch}
}

// Check reports which of deps are not yet satisfied on the host.
func (r *Resolver) Check(ctx context.Context, deps []Dependency) ([]Dependency, error) {
	var missing []Dependency
	for _, d := range deps {
		ok, err := r.isSatisfied(ctx, d)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, d)
		}
	}
	return missing, nil
}

func (r *Resolver) isSatisfied(ctx context.Context, d Dependency) (bool, error) {
	switch d.Kind {
	case KindNetFramework:
		return netFrameworkSatisfied(d.FxVer)
	case KindNetModern:
		return netModernSatisfied(d, r.hostArch)
	case KindVCRedist:
		return vcredistSatisfied(d)
	case KindWebView2:
		return webview2Satisfied()
	default:
		return false, fmt.Errorf("prereq: unknown dependency kind for %q", d.Token)
	}
}
