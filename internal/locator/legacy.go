package locator

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver"
)

type legacyDir struct {
	name    string
	version *semver.Version
}

// parseLegacyAppDir recognises the legacy Squirrel.Windows "app-<semver>"
// directory naming convention.
func parseLegacyAppDir(name string) (*semver.Version, bool) {
	const prefix = "app-"
	if !strings.HasPrefix(name, prefix) {
		return nil, false
	}
	v, err := semver.NewVersion(strings.TrimPrefix(name, prefix))
	if err != nil {
		return nil, false
	}
	return v, true
}

func sortLegacyDirs(dirs []legacyDir) {
	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].version.LessThan(dirs[j].version)
	})
}
