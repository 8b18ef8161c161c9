package install

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/velopack/velogo/internal/operr"
)

func TestCheckArchitectureX64HostSupportsX86AndX64(t *testing.T) {
	assert.NoError(t, CheckArchitecture("amd64", "x86", false))
	assert.NoError(t, CheckArchitecture("amd64", "x64", false))
	assert.Error(t, CheckArchitecture("amd64", "arm64", false))
}

func TestCheckArchitectureArm64HostRejectsX64ExceptWindows11(t *testing.T) {
	err := CheckArchitecture("arm64", "x64", false)
	assert.True(t, errors.Is(err, operr.ErrUnsupportedArchitecture))

	assert.NoError(t, CheckArchitecture("arm64", "x64", true))
	assert.NoError(t, CheckArchitecture("arm64", "arm64", false))
	assert.NoError(t, CheckArchitecture("arm64", "x86", false))
}

func TestCheckArchitectureEmptyManifestArchAlwaysPasses(t *testing.T) {
	assert.NoError(t, CheckArchitecture("amd64", "", false))
}

func TestCheckOSVersionBelowMinimumFails(t *testing.T) {
	err := CheckOSVersion("10.0.17000", "10.0.19041")
	assert.True(t, errors.Is(err, operr.ErrUnsupportedOSVersion))
}

func TestCheckOSVersionAtOrAboveMinimumPasses(t *testing.T) {
	assert.NoError(t, CheckOSVersion("10.0.22000", "10.0.19041"))
	assert.NoError(t, CheckOSVersion("10.0.19041", "10.0.19041"))
}

func TestCheckOSVersionEmptyMinimumAlwaysPasses(t *testing.T) {
	assert.NoError(t, CheckOSVersion("", ""))
}

func TestCheckDiskSpaceInsufficient(t *testing.T) {
	err := CheckDiskSpace(t.TempDir(), 1<<62, 1<<62)
	assert.True(t, errors.Is(err, operr.ErrInsufficientDiskSpace))
}

func TestCheckDiskSpaceSufficient(t *testing.T) {
	assert.NoError(t, CheckDiskSpace(t.TempDir(), 1024, 1024))
}
