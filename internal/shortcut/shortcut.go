// Package shortcut enumerates, creates, renames, updates, and removes OS
// shell shortcuts across well-known locations, diffing an old manifest
// against a new one.
package shortcut

import (
	"github.com/velopack/velogo/internal/manifest"
)

// Target describes everything a shortcut reconciliation plan needs to know
// about the application being reconciled at one point in its lifecycle.
type Target struct {
	Title         string
	MainExe       string // absolute path
	CurrentBinDir string // absolute path, used as working directory
	AMUID         string
	Locations     manifest.LocationSet
	InstallRoot   string // used for the sub-path test when enumerating existing shortcuts
}

// Plan is the set of reconciliation actions computed by Diff.
type Plan struct {
	ToAdd    []manifest.ShortcutLocation
	ToUpdate []manifest.ShortcutLocation
	ToRemove []manifest.ShortcutLocation
	Rename   bool
}

// Diff computes the add/update/remove sets between an optional previous
// target and the next one.
//
// START_MENU and START_MENU_ROOT are treated as a single slot: if either
// already holds a shortcut that would be in ToUpdate, the other is not
// separately added.
func Diff(prev *Target, next Target) Plan {
	var prevLocs manifest.LocationSet
	var prevTitle string
	if prev != nil {
		prevLocs = prev.Locations
		prevTitle = prev.Title
	}
	nextLocs := next.Locations

	toAdd := nextLocs.Difference(prevLocs)
	toUpdate := prevLocs.Intersection(nextLocs)
	toRemove := prevLocs.Difference(nextLocs)

	// Collapse the START_MENU / START_MENU_ROOT single-slot rule: if one of
	// the pair is already in toUpdate, drop the other from toAdd.
	if toUpdate.Has(manifest.LocationStartMenu) || toUpdate.Has(manifest.LocationStartMenuRoot) {
		toAdd = toAdd.Without(manifest.LocationStartMenu).Without(manifest.LocationStartMenuRoot)
	} else if toAdd.Has(manifest.LocationStartMenu) && toAdd.Has(manifest.LocationStartMenuRoot) {
		toAdd = toAdd.Without(manifest.LocationStartMenuRoot)
	}

	return Plan{
		ToAdd:    expand(toAdd),
		ToUpdate: expand(toUpdate),
		ToRemove: expand(toRemove),
		Rename:   prev != nil && prevTitle != "" && prevTitle != next.Title,
	}
}

var allLocations = []manifest.ShortcutLocation{
	manifest.LocationDesktop,
	manifest.LocationStartup,
	manifest.LocationStartMenu,
	manifest.LocationStartMenuRoot,
	manifest.LocationUserPinned,
}

func expand(set manifest.LocationSet) []manifest.ShortcutLocation {
	var out []manifest.ShortcutLocation
	for _, loc := range allLocations {
		if set.Has(loc) {
			out = append(out, loc)
		}
	}
	return out
}

// FileName computes the shortcut filename "{title}.lnk" (or "{id}.lnk" when
// title is empty).
func FileName(titleOrID string) string {
	return titleOrID + ".lnk"
}
