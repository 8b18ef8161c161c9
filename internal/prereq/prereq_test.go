package prereq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenWebView2(t *testing.T) {
	d, err := ParseToken("webview2")
	require.NoError(t, err)
	assert.Equal(t, KindWebView2, d.Kind)
}

func TestParseTokenLegacyNetFramework(t *testing.T) {
	d, err := ParseToken("net472")
	require.NoError(t, err)
	assert.Equal(t, KindNetFramework, d.Kind)
	assert.Equal(t, "472", d.FxVer)
}

func TestParseTokenModernNet(t *testing.T) {
	d, err := ParseToken("net8.0-x64-runtime")
	require.NoError(t, err)
	assert.Equal(t, KindNetModern, d.Kind)
	assert.Equal(t, "x64", d.Arch)
	assert.Equal(t, "runtime", d.Flavor)
	require.NotNil(t, d.Version)
	assert.Equal(t, int64(8), d.Version.Major())
}

func TestParseTokenModernNetWithoutMinor(t *testing.T) {
	d, err := ParseToken("net6-arm64-aspnetcore")
	require.NoError(t, err)
	assert.Equal(t, "arm64", d.Arch)
	assert.Equal(t, "aspnetcore", d.Flavor)
	assert.Equal(t, int64(6), d.Version.Major())
}

func TestParseTokenVCRedist(t *testing.T) {
	d, err := ParseToken("vcredist143-x64")
	require.NoError(t, err)
	assert.Equal(t, KindVCRedist, d.Kind)
	assert.Equal(t, "x64", d.Arch)
	assert.Equal(t, int64(14), d.Version.Major())
	assert.Equal(t, int64(3), d.Version.Minor())
}

func TestParseTokenUnrecognized(t *testing.T) {
	_, err := ParseToken("openssl3")
	assert.Error(t, err)
}

func TestParseTokenMalformedVCRedist(t *testing.T) {
	_, err := ParseToken("vcredist-x64")
	assert.Error(t, err)
}

func TestParseTokenMalformedModernNet(t *testing.T) {
	_, err := ParseToken("net8.0-x64")
	assert.Error(t, err)
}

func TestDotnetArchDirArm64RequestingX64(t *testing.T) {
	assert.Equal(t, "x64", dotnetArchDir("arm64", "x64"))
}

func TestDotnetArchDirMatchingArch(t *testing.T) {
	assert.Equal(t, "", dotnetArchDir("x64", "x64"))
}

func TestInterpretExitCodeSuccess(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, InterpretExitCode(0))
	assert.Equal(t, OutcomeSuccess, InterpretExitCode(1638))
}

func TestInterpretExitCodeRestartRequired(t *testing.T) {
	assert.Equal(t, OutcomeSuccessRestartRequired, InterpretExitCode(3010))
	assert.Equal(t, OutcomeSuccessRestartRequired, InterpretExitCode(1641))
}

func TestInterpretExitCodeUserFacing(t *testing.T) {
	for _, code := range []int{1602, 1618, 5100} {
		assert.Equal(t, OutcomeUserFacingError, InterpretExitCode(code))
		assert.NotEmpty(t, UserFacingError(code))
	}
}

func TestInterpretExitCodeGenericFailure(t *testing.T) {
	assert.Equal(t, OutcomeGenericFailure, InterpretExitCode(1))
	assert.Empty(t, UserFacingError(1))
}

func TestResolverCheckRejectsUnknownKind(t *testing.T) {
	r := New("x64")
	_, err := r.Check(nil, []Dependency{{Token: "bogus", Kind: Kind(99)}})
	assert.Error(t, err)
}
