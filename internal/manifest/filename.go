package manifest

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// AssetKind distinguishes a full package from a delta package.
type AssetKind int

const (
	KindFull AssetKind = iota
	KindDelta
)

func (k AssetKind) String() string {
	if k == KindDelta {
		return "Delta"
	}
	return "Full"
}

// versionCorePattern matches the numeric triple that starts a version
// token, marking where the id ends inside a hyphenated file name.
var versionCorePattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+`)

// ParseFileName inverts Manifest.PackageFileName/DeltaFileName, tolerating
// a RID token (os[-arch], e.g. "win-x64") between the version and the
// full/delta suffix. The suffix is case-insensitive.
//
// "My.Cool-App-1.1.0-full.nupkg" splits as id="My.Cool-App",
// version="1.1.0" because the id runs until the first token that starts a
// parsable version. A prerelease tag containing hyphens stays part of the
// version ("9.9.9-beta.1"), while an OS-prefixed remainder is treated as a
// RID and dropped ("2.0.0-win-x64").
func ParseFileName(fileName string) (id string, version *semver.Version, kind AssetKind, err error) {
	lower := strings.ToLower(fileName)
	var base string
	switch {
	case strings.HasSuffix(lower, "-full.nupkg"):
		kind = KindFull
		base = fileName[:len(fileName)-len("-full.nupkg")]
	case strings.HasSuffix(lower, "-delta.nupkg"):
		kind = KindDelta
		base = fileName[:len(fileName)-len("-delta.nupkg")]
	default:
		return "", nil, KindFull, errors.Errorf("manifest: %q is not a well-formed nupkg file name", fileName)
	}

	parts := strings.Split(base, "-")
	verStart := -1
	for i := 1; i < len(parts); i++ {
		if versionCorePattern.MatchString(parts[i]) {
			verStart = i
			break
		}
	}
	if verStart < 1 {
		return "", nil, kind, errors.Errorf("manifest: no version in %q", fileName)
	}
	id = strings.Join(parts[:verStart], "-")

	// Prefer the shortest token span that parses as a version and whose
	// remainder, if any, is a RID; extend the span otherwise so hyphenated
	// prerelease tags stay attached to the version.
	for j := verStart + 1; j <= len(parts); j++ {
		candidate := strings.Join(parts[verStart:j], "-")
		v, verr := semver.NewVersion(candidate)
		if verr != nil {
			continue
		}
		if j == len(parts) || isRIDToken(parts[j]) {
			return id, v, kind, nil
		}
	}
	return "", nil, kind, errors.Errorf("manifest: version in %q does not parse", fileName)
}

func isRIDToken(tok string) bool {
	switch strings.ToLower(tok) {
	case "win", "osx", "linux":
		return true
	}
	return false
}
