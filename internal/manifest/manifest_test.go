package manifest

import (
	"testing"

	"github.com/Masterminds/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVersion(v string) (*semver.Version, error) {
	return semver.NewVersion(v)
}

const sampleNuspec = `<?xml version="1.0"?>
<package>
  <metadata>
    <id>Sample</id>
    <version>1.0.0</version>
    <title>Sample App</title>
    <authors>Acme Corp</authors>
    <mainExe>Sample.exe</mainExe>
    <os>win</os>
    <channel>stable</channel>
    <shortcutLocations>Desktop,StartMenu</shortcutLocations>
    <customUrlProtocols>sampleapp</customUrlProtocols>
  </metadata>
</package>`

func TestParseValid(t *testing.T) {
	m, err := Parse([]byte(sampleNuspec), true)
	require.NoError(t, err)
	assert.Equal(t, "Sample", m.ID)
	assert.Equal(t, "1.0.0", m.Version.String())
	assert.Equal(t, "Sample App", m.Title)
	assert.Equal(t, "Sample.exe", m.MainExe)
	assert.True(t, m.ShortcutLocations.Has(LocationDesktop))
	assert.True(t, m.ShortcutLocations.Has(LocationStartMenu))
	assert.False(t, m.ShortcutLocations.Has(LocationStartup))
	assert.Equal(t, []string{"sampleapp"}, m.CustomURLProtocols)
	assert.Equal(t, "Sample-1.0.0-full.nupkg", m.PackageFileName())
}

func TestParseMissingID(t *testing.T) {
	bad := `<package><metadata><version>1.0.0</version></metadata></package>`
	_, err := Parse([]byte(bad), false)
	require.Error(t, err)
}

func TestParseMissingVersion(t *testing.T) {
	bad := `<package><metadata><id>Sample</id></metadata></package>`
	_, err := Parse([]byte(bad), false)
	require.Error(t, err)
}

func TestParseRequiresMainExe(t *testing.T) {
	bad := `<package><metadata><id>Sample</id><version>1.0.0</version></metadata></package>`
	_, err := Parse([]byte(bad), true)
	require.Error(t, err)

	m, err := Parse([]byte(bad), false)
	require.NoError(t, err)
	assert.Equal(t, "Sample", m.Title) // defaults to id
}

func TestLocationSetOperations(t *testing.T) {
	a := LocationSet(0).With(LocationDesktop).With(LocationStartup)
	b := LocationSet(0).With(LocationStartup).With(LocationStartMenu)

	assert.True(t, a.Intersection(b).Has(LocationStartup))
	assert.False(t, a.Intersection(b).Has(LocationDesktop))

	diff := a.Difference(b)
	assert.True(t, diff.Has(LocationDesktop))
	assert.False(t, diff.Has(LocationStartup))
}
