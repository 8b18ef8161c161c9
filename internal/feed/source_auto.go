package feed

import (
	"context"
	"strings"

	"github.com/Masterminds/semver"
)

// AutoSource dispatches to FileSource or HTTPSource based on the URL
// scheme of Location: "file://" or a bare path routes to FileSource,
// anything else to HTTPSource.
type AutoSource struct {
	Location string
}

func (s AutoSource) resolve() Source {
	loc := s.Location
	if strings.HasPrefix(loc, "file://") {
		return FileSource{Dir: strings.TrimPrefix(loc, "file://")}
	}
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return HTTPSource{BaseURL: loc}
	}
	return FileSource{Dir: loc}
}

func (s AutoSource) GetReleaseFeed(ctx context.Context, channel string, currentVersion *semver.Version, appID, stagedUserID string) (Feed, error) {
	return s.resolve().GetReleaseFeed(ctx, channel, currentVersion, appID, stagedUserID)
}

func (s AutoSource) DownloadAsset(ctx context.Context, asset Asset, localPath string, progress func(int)) error {
	return s.resolve().DownloadAsset(ctx, asset, localPath, progress)
}
