package feed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// readBufferSize is the HTTP download read-buffer size; progress is
// emitted per buffer, rounded to the nearest 5%.
const readBufferSize = 2 * 1024 * 1024

// HTTPSource fetches releases.<channel>.json and downloads assets over
// HTTPS from a remote base URL.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func (s HTTPSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

func (s HTTPSource) GetReleaseFeed(ctx context.Context, channel string, currentVersion *semver.Version, appID string, stagedUserID string) (Feed, error) {
	q := url.Values{}
	if currentVersion != nil {
		q.Set("localVersion", currentVersion.String())
	}
	q.Set("id", appID)
	q.Set("stagingId", stagedUserID)

	endpoint := fmt.Sprintf("%s/%s?%s", s.BaseURL, feedFileName(channel), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Feed{}, err
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return Feed{}, errors.Wrapf(err, "fetching %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Feed{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Feed{}, fmt.Errorf("feed: unexpected status %d fetching %s", resp.StatusCode, endpoint)
	}

	var f Feed
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return Feed{}, fmt.Errorf("feed: parsing response from %s: %w", endpoint, err)
	}
	return f, nil
}

func (s HTTPSource) DownloadAsset(ctx context.Context, asset Asset, localPath string, progress func(int)) error {
	endpoint := fmt.Sprintf("%s/%s", s.BaseURL, asset.FileName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return errors.Wrapf(err, "downloading %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed: %w: unexpected status %d downloading %s", ErrAssetFetch, resp.StatusCode, endpoint)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	total := resp.ContentLength
	return copyWithProgress(ctx, out, resp.Body, total, progress)
}

// ErrAssetFetch is returned when an HTTP asset download does not return 200.
var ErrAssetFetch = fmt.Errorf("asset download failed")

// copyWithProgress streams src to dst in readBufferSize chunks, reporting
// progress rounded to the nearest 5% when total is known.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress func(int)) error {
	buf := make([]byte, readBufferSize)
	var read int64
	lastReported := -1

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			read += int64(n)
			if progress != nil && total > 0 {
				pct := int(float64(read)/float64(total)*20+0.5) * 5
				if pct != lastReported {
					lastReported = pct
					progress(pct)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	if progress != nil && lastReported < 100 {
		progress(100)
	}
	return nil
}
