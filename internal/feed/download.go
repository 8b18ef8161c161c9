package feed

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"

	"github.com/velopack/velogo/internal/operr"
)

// DownloadToPackages downloads asset into packagesDir unless it already
// exists there. It enumerates existing *.nupkg files before downloading
// and, on success, deletes all of them (keeping only the newly downloaded
// one), then -- on Windows -- extracts the bundle's embedded Squirrel.exe
// entry over the live Update.exe so the updater self-refreshes.
func DownloadToPackages(ctx context.Context, src Source, asset Asset, packagesDir, updateExePath string, progress func(int)) (string, error) {
	localPath := filepath.Join(packagesDir, asset.FileName)

	if _, err := os.Stat(localPath); err == nil {
		if progress != nil {
			progress(100)
		}
		return localPath, nil
	}

	stale, err := existingNupkgs(packagesDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(packagesDir, 0o755); err != nil {
		return "", err
	}
	if err := src.DownloadAsset(ctx, asset, localPath, progress); err != nil {
		return "", err
	}
	if err := verifyChecksum(localPath, asset); err != nil {
		os.Remove(localPath)
		return "", err
	}

	for _, f := range stale {
		os.Remove(f)
	}

	if runtime.GOOS == "windows" {
		if err := refreshUpdateExe(localPath, updateExePath); err != nil {
			return localPath, errors.Wrap(err, "refreshing Update.exe from downloaded package")
		}
	}

	return localPath, nil
}

func existingNupkgs(packagesDir string) ([]string, error) {
	entries, err := os.ReadDir(packagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".nupkg") {
			out = append(out, filepath.Join(packagesDir, e.Name()))
		}
	}
	return out, nil
}

// verifyChecksum compares the downloaded file against the feed's advertised
// digest, preferring SHA256 and falling back to SHA1. An asset advertising
// neither is accepted as-is.
func verifyChecksum(path string, asset Asset) error {
	var h hash.Hash
	var want string
	switch {
	case asset.SHA256 != "":
		h, want = sha256.New(), asset.SHA256
	case asset.SHA1 != "":
		h, want = sha1.New(), asset.SHA1
	default:
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, want) {
		return errors.Wrapf(operr.ErrChecksumMismatch, "%s: got %s, feed advertises %s", asset.FileName, got, want)
	}
	return nil
}

// refreshUpdateExe extracts the embedded Squirrel.exe entry from the
// just-downloaded package over the live Update.exe.
func refreshUpdateExe(nupkgPath, updateExePath string) error {
	r, err := zip.OpenReader(nupkgPath)
	if err != nil {
		return err
	}
	defer r.Close()

	var squirrel *zip.File
	for _, f := range r.File {
		if strings.EqualFold(filepath.Base(f.Name), "Squirrel.exe") {
			squirrel = f
			break
		}
	}
	if squirrel == nil {
		// Not every package re-ships the updater; nothing to refresh.
		return nil
	}

	rc, err := squirrel.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp := updateExePath + ".new"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	out.Close()

	return os.Rename(tmp, updateExePath)
}
