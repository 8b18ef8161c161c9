package shortcut

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/velopack/velogo/internal/manifest"
)

func locSet(locs ...manifest.ShortcutLocation) manifest.LocationSet {
	var set manifest.LocationSet
	for _, loc := range locs {
		set = set.With(loc)
	}
	return set
}

func TestDiffFreshInstallAddsAll(t *testing.T) {
	next := Target{
		Title:     "MyApp",
		Locations: locSet(manifest.LocationDesktop, manifest.LocationStartMenu),
	}

	plan := Diff(nil, next)

	assert.ElementsMatch(t, []manifest.ShortcutLocation{manifest.LocationDesktop, manifest.LocationStartMenu}, plan.ToAdd)
	assert.Empty(t, plan.ToUpdate)
	assert.Empty(t, plan.ToRemove)
	assert.False(t, plan.Rename)
}

func TestDiffNoChangeIsIdempotent(t *testing.T) {
	locs := locSet(manifest.LocationDesktop, manifest.LocationStartMenu)
	prev := &Target{Title: "MyApp", Locations: locs}
	next := Target{Title: "MyApp", Locations: locs}

	plan := Diff(prev, next)

	assert.Empty(t, plan.ToAdd)
	assert.ElementsMatch(t, []manifest.ShortcutLocation{manifest.LocationDesktop, manifest.LocationStartMenu}, plan.ToUpdate)
	assert.Empty(t, plan.ToRemove)
	assert.False(t, plan.Rename)

	// Running Diff again against its own "next" state produces the same
	// ToUpdate set, never re-adding or re-removing anything: reconciliation
	// is idempotent.
	again := Diff(&next, next)
	assert.Equal(t, plan.ToUpdate, again.ToUpdate)
}

func TestDiffRemovesDroppedLocations(t *testing.T) {
	prev := &Target{Title: "MyApp", Locations: locSet(manifest.LocationDesktop, manifest.LocationStartup)}
	next := Target{Title: "MyApp", Locations: locSet(manifest.LocationDesktop)}

	plan := Diff(prev, next)

	assert.Empty(t, plan.ToAdd)
	assert.Equal(t, []manifest.ShortcutLocation{manifest.LocationDesktop}, plan.ToUpdate)
	assert.Equal(t, []manifest.ShortcutLocation{manifest.LocationStartup}, plan.ToRemove)
}

func TestDiffDetectsRename(t *testing.T) {
	prev := &Target{Title: "Old Name", Locations: locSet(manifest.LocationDesktop)}
	next := Target{Title: "New Name", Locations: locSet(manifest.LocationDesktop)}

	plan := Diff(prev, next)
	assert.True(t, plan.Rename)
}

func TestDiffStartMenuRootCollapsesIntoSingleSlot(t *testing.T) {
	prev := &Target{Title: "MyApp", Locations: locSet(manifest.LocationStartMenu)}
	next := Target{Title: "MyApp", Locations: locSet(manifest.LocationStartMenu, manifest.LocationStartMenuRoot)}

	plan := Diff(prev, next)

	// START_MENU is already present and should be updated in place rather
	// than also adding START_MENU_ROOT as a second shortcut.
	assert.Empty(t, plan.ToAdd)
	assert.Equal(t, []manifest.ShortcutLocation{manifest.LocationStartMenu}, plan.ToUpdate)
}

func TestDiffStartMenuRootFreshInstallPicksOneSlot(t *testing.T) {
	next := Target{
		Title:     "MyApp",
		Locations: locSet(manifest.LocationStartMenu, manifest.LocationStartMenuRoot),
	}

	plan := Diff(nil, next)

	assert.Equal(t, []manifest.ShortcutLocation{manifest.LocationStartMenu}, plan.ToAdd)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "MyApp.lnk", FileName("MyApp"))
}

func TestJaroWinklerIdentical(t *testing.T) {
	assert.Equal(t, 1.0, JaroWinkler("MyApp", "MyApp"))
}

func TestJaroWinklerCloseMatchScoresHigh(t *testing.T) {
	score := JaroWinkler("MyApp", "MyApp 2")
	assert.Greater(t, score, 0.8)
}

func TestJaroWinklerEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, JaroWinkler("", "MyApp"))
}

func TestBestMatchPicksClosest(t *testing.T) {
	idx := BestMatch("MyApp", []string{"Unrelated", "MyApp2", "TotallyDifferent"})
	assert.Equal(t, 1, idx)
}

func TestBestMatchEmptyCandidates(t *testing.T) {
	assert.Equal(t, -1, BestMatch("MyApp", nil))
}
