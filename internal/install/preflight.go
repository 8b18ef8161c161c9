package install

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"

	"github.com/velopack/velogo/internal/operr"
)

// CheckArchitecture verifies the host CPU architecture can run a package
// built for machineArch: x64 hosts run x86+x64; arm64 hosts run x86+arm64,
// plus x64 on Windows 11 only.
func CheckArchitecture(hostArch, machineArch string, isWindows11 bool) error {
	machineArch = strings.ToLower(strings.TrimSpace(machineArch))
	if machineArch == "" {
		return nil
	}

	switch strings.ToLower(hostArch) {
	case "amd64", "x64":
		switch machineArch {
		case "x86", "x64":
			return nil
		}
	case "arm64":
		switch machineArch {
		case "x86", "arm64":
			return nil
		case "x64":
			if isWindows11 {
				return nil
			}
		}
	case "386", "x86":
		if machineArch == "x86" {
			return nil
		}
	}

	return fmt.Errorf("%w: host=%s package=%s", operr.ErrUnsupportedArchitecture, hostArch, machineArch)
}

// CheckOSVersion verifies hostVersion meets minVersion, both parsed as
// semantic versions (OS build numbers like "10.0.19041" parse cleanly).
// An empty minVersion always passes.
func CheckOSVersion(hostVersion, minVersion string) error {
	minVersion = strings.TrimSpace(minVersion)
	if minVersion == "" {
		return nil
	}

	min, err := semver.NewVersion(minVersion)
	if err != nil {
		return nil
	}
	host, err := semver.NewVersion(hostVersion)
	if err != nil {
		return nil
	}

	if host.LessThan(min) {
		return fmt.Errorf("%w: host=%s required=%s", operr.ErrUnsupportedOSVersion, hostVersion, minVersion)
	}
	return nil
}

// diskSpaceOverheadBytes is the fixed overhead required above
// compressed+uncompressed package size.
const diskSpaceOverheadBytes = 50 * 1024 * 1024

// CheckDiskSpace verifies the destination volume has at least
// compressed+uncompressed+50MB free.
func CheckDiskSpace(destDir string, compressedTotal, uncompressedTotal uint64) error {
	free, err := freeSpace(destDir)
	if err != nil {
		return fmt.Errorf("install: querying free disk space: %w", err)
	}

	required := compressedTotal + uncompressedTotal + diskSpaceOverheadBytes
	if free < required {
		return fmt.Errorf("%w: required=%d free=%d", operr.ErrInsufficientDiskSpace, required, free)
	}
	return nil
}
