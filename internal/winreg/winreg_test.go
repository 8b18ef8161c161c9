package winreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterURLProtocolsNoOpOnUnsupportedPlatformsDoesNotError(t *testing.T) {
	// Exercises the diff/dispatch logic in RegisterURLProtocols independent
	// of whether the underlying platform backend actually writes anything.
	err := RegisterURLProtocols([]string{"oldscheme"}, []string{"newscheme"}, "C:/App/App.exe")
	require.NoError(t, err)
}

func TestWriteAndRemoveRoundTripDoesNotError(t *testing.T) {
	e := Entry{
		AppID:          "velogo-winreg-test",
		DisplayIcon:    "C:/App/App.exe",
		DisplayName:    "Velogo Test App",
		DisplayVersion: "1.0.0",
	}
	require.NoError(t, Write(e))
	_, err := Exists(e.AppID)
	assert.NoError(t, err)
	require.NoError(t, Remove(e.AppID))
}
