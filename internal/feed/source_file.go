package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// FileSource reads releases.<channel>.json from a local directory and
// copies asset files with a synthetic 50%/100% progress sequence.
type FileSource struct {
	Dir string
}

func (s FileSource) GetReleaseFeed(ctx context.Context, channel string, _ *semver.Version, _ string, _ string) (Feed, error) {
	path := filepath.Join(s.Dir, feedFileName(channel))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Feed{}, nil
		}
		return Feed{}, errors.Wrapf(err, "reading %s", path)
	}

	var f Feed
	if err := json.Unmarshal(data, &f); err != nil {
		return Feed{}, fmt.Errorf("feed: parsing %s: %w", path, err)
	}
	return f, nil
}

func (s FileSource) DownloadAsset(ctx context.Context, asset Asset, localPath string, progress func(int)) error {
	src := filepath.Join(s.Dir, asset.FileName)

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening asset %s", src)
	}
	defer in.Close()

	if progress != nil {
		progress(50)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrap(err, "copying asset")
	}

	if progress != nil {
		progress(100)
	}
	return nil
}

func feedFileName(channel string) string {
	return fmt.Sprintf("releases.%s.json", channel)
}
