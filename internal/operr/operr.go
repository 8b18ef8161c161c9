// Package operr defines the sentinel error taxonomy shared by the install,
// update and uninstall orchestrators. Low-level packages wrap underlying
// causes with github.com/pkg/errors; orchestrators compare against these
// sentinels with errors.Is/errors.As so callers can branch on failure kind
// without parsing messages.
package operr

import "errors"

var (
	// ErrNotInstalled is returned when a Locator cannot be resolved from a
	// given entry point.
	ErrNotInstalled = errors.New("velopack: application is not installed")

	// ErrMissingUpdateExe is returned when root_dir is found but Update.exe
	// is absent from it.
	ErrMissingUpdateExe = errors.New("velopack: Update.exe not found")

	// ErrMissingNuspec is returned when a bundle zip has no *.nuspec entry.
	ErrMissingNuspec = errors.New("velopack: bundle is missing a .nuspec manifest entry")

	// ErrLockBusy is returned when the named per-app mutex is already held.
	ErrLockBusy = errors.New("velopack: another install, update, or uninstall operation is already running")

	// ErrInsufficientDiskSpace is returned by pre-flight disk checks.
	ErrInsufficientDiskSpace = errors.New("velopack: insufficient disk space")

	// ErrUnsupportedArchitecture is returned when the host CPU architecture
	// cannot run the package's machine_architecture.
	ErrUnsupportedArchitecture = errors.New("velopack: unsupported machine architecture")

	// ErrUnsupportedOSVersion is returned when the host OS version is below
	// the manifest's os_min_version.
	ErrUnsupportedOSVersion = errors.New("velopack: unsupported operating system version")

	// ErrMissingPrerequisite is returned when a required runtime could not
	// be installed.
	ErrMissingPrerequisite = errors.New("velopack: a required prerequisite runtime could not be installed")

	// ErrUserCancelled is returned by dialogs and propagated as a clean abort.
	ErrUserCancelled = errors.New("velopack: operation cancelled by user")

	// ErrBundleCorrupt covers header/zip structural problems in the bundle.
	ErrBundleCorrupt = errors.New("velopack: bundle is corrupt")

	// ErrFeedParse covers malformed releases.<channel>.json payloads.
	ErrFeedParse = errors.New("velopack: could not parse release feed")

	// ErrAssetNotFound is returned when a named asset is absent from a feed
	// or from its source.
	ErrAssetNotFound = errors.New("velopack: asset not found")

	// ErrChecksumMismatch is returned when a downloaded or extracted file's
	// checksum does not match the feed's advertised value.
	ErrChecksumMismatch = errors.New("velopack: checksum mismatch")

	// ErrHookFailed is logged, non-fatal for install/update.
	ErrHookFailed = errors.New("velopack: lifecycle hook exited non-zero")

	// ErrHookTimeout is logged, non-fatal for install/update.
	ErrHookTimeout = errors.New("velopack: lifecycle hook timed out")

	// ErrUpdateApplyFatal is raised only once the apply pipeline has passed
	// its point of no return (see internal/update). The install is left
	// partially applied and the caller is told to reinstall.
	ErrUpdateApplyFatal = errors.New("velopack: update could not be completed and the install may be damaged; reinstall is required")
)
