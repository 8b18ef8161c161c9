package feed

import "github.com/Masterminds/semver"

// SelectionStatus is the outcome of update selection.
type SelectionStatus int

const (
	NoUpdate SelectionStatus = iota
	UpdateAvailable
	RemoteEmpty
)

// UpdateInfo is a selected target full release plus an is-downgrade flag.
type UpdateInfo struct {
	Status       SelectionStatus
	TargetAsset  Asset
	IsDowngrade  bool
}

// PracticalChannel resolves the channel to actually query: the explicit
// override if set, else the manifest's channel, else the OS default.
func PracticalChannel(explicitOverride, manifestChannel, osDefault string) string {
	if explicitOverride != "" {
		return explicitOverride
	}
	if manifestChannel != "" {
		return manifestChannel
	}
	return osDefault
}

// Select picks the update target from a feed.
//
//  1. empty feed -> RemoteEmpty
//  2. pick the Full asset with the highest parsable version
//  3. remote > current -> UpdateAvailable, IsDowngrade=false
//  4. else if downgrade allowed and remote < current -> UpdateAvailable, IsDowngrade=true
//  5. else if downgrade allowed, channel differs, remote == current -> UpdateAvailable, IsDowngrade=true (channel switch)
//  6. else -> NoUpdate
func Select(f Feed, currentVersion *semver.Version, allowDowngrade bool, practicalChannel, manifestChannel string) UpdateInfo {
	if len(f.Assets) == 0 {
		return UpdateInfo{Status: RemoteEmpty}
	}

	best, ok := f.highestFull()
	if !ok {
		return UpdateInfo{Status: RemoteEmpty}
	}

	remote := best.semver()
	switch {
	case remote.GreaterThan(currentVersion):
		return UpdateInfo{Status: UpdateAvailable, TargetAsset: best, IsDowngrade: false}
	case allowDowngrade && remote.LessThan(currentVersion):
		return UpdateInfo{Status: UpdateAvailable, TargetAsset: best, IsDowngrade: true}
	case allowDowngrade && practicalChannel != manifestChannel && remote.Equal(currentVersion):
		return UpdateInfo{Status: UpdateAvailable, TargetAsset: best, IsDowngrade: true}
	default:
		return UpdateInfo{Status: NoUpdate}
	}
}

// DefaultChannel returns the OS-derived default channel name.
func DefaultChannel(goos string) string {
	switch goos {
	case "windows":
		return "win"
	case "darwin":
		return "osx"
	default:
		return "linux"
	}
}
