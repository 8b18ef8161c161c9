// Package feed resolves a channel name to an ordered list of available
// release assets from an abstract source (a local folder or an HTTP
// server), and selects upgrade/downgrade candidates against the current
// manifest.
package feed

import (
	"context"
	"strings"

	"github.com/Masterminds/semver"
)

// AssetType distinguishes full and delta assets within a feed.
type AssetType string

const (
	TypeFull  AssetType = "Full"
	TypeDelta AssetType = "Delta"
)

// Asset is a single release asset entry, as found in releases.<channel>.json.
type Asset struct {
	PackageID     string    `json:"PackageId"`
	Version       string    `json:"Version"`
	Type          AssetType `json:"Type"`
	FileName      string    `json:"FileName"`
	SHA1          string    `json:"SHA1"`
	SHA256        string    `json:"SHA256"`
	Size          uint64    `json:"Size"`
	NotesMarkdown string    `json:"NotesMarkdown"`
	NotesHtml     string    `json:"NotesHtml"`
}

// semver parses Asset.Version, returning nil if it does not parse (such
// assets are ignored by selection, never chosen as an upgrade candidate).
func (a Asset) semver() *semver.Version {
	v, err := semver.NewVersion(a.Version)
	if err != nil {
		return nil
	}
	return v
}

// Feed is an ordered list of release assets for a single channel.
type Feed struct {
	Assets []Asset `json:"Assets"`
}

// Find looks up an asset by file name, case-insensitively.
func (f Feed) Find(fileName string) (Asset, bool) {
	for _, a := range f.Assets {
		if strings.EqualFold(a.FileName, fileName) {
			return a, true
		}
	}
	return Asset{}, false
}

// highestFull returns the Full asset with the highest parsable semantic
// version, or ok=false if the feed has no parsable Full asset.
func (f Feed) highestFull() (Asset, bool) {
	var best Asset
	var bestVer *semver.Version
	for _, a := range f.Assets {
		if a.Type != TypeFull {
			continue
		}
		v := a.semver()
		if v == nil {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			bestVer = v
			best = a
		}
	}
	return best, bestVer != nil
}

// Source is the abstract update source capability: get_release_feed and
// download_asset. It is the only true polymorphic boundary in this core;
// FileSource, HTTPSource, and AutoSource are its three
// concrete implementations.
type Source interface {
	GetReleaseFeed(ctx context.Context, channel string, currentVersion *semver.Version, appID string, stagedUserID string) (Feed, error)
	DownloadAsset(ctx context.Context, asset Asset, localPath string, progress func(percent int)) error
}
