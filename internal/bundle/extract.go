package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

// extractZipFile streams one zip entry to destPath using a 64 KB buffer,
// creating parent directories as needed.
func extractZipFile(f *zip.File, destPath string) error {
	if f.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("bundle: creating parent dirs for %s: %w", destPath, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("bundle: opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode().Perm()|0o600)
	if err != nil {
		return fmt.Errorf("bundle: creating %s: %w", destPath, err)
	}
	defer out.Close()

	buf := make([]byte, extractBufferSize)
	if _, err := io.CopyBuffer(out, rc, buf); err != nil {
		return fmt.Errorf("bundle: writing %s: %w", destPath, err)
	}
	return nil
}

// ProgressFunc receives integers 0-100.
type ProgressFunc func(percent int)

// ExtractAppTree extracts only entries under lib/<framework>/, re-rooting
// them at dest. Symlink placeholder entries (".__symlink" suffix, whose
// payload is the relative link target) are deferred to a second pass so
// their targets exist by the time the link is created. On macOS, Mach-O
// executables receive the executable permission bit.
func (r *Reader) ExtractAppTree(dest string, progress ProgressFunc) error {
	type planned struct {
		rel string
		f   *zip.File
	}

	var files []planned
	var symlinks []planned

	for _, f := range r.zr.File {
		rel, ok := appTreePrefix(f.Name)
		if !ok || rel == "" {
			continue
		}
		if isSymlinkEntry(rel) {
			symlinks = append(symlinks, planned{rel: symlinkRealName(rel), f: f})
			continue
		}
		files = append(files, planned{rel: rel, f: f})
	}

	// Deterministic order so progress percentages and test expectations are
	// stable regardless of zip central-directory ordering.
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })

	total := len(files)
	if total == 0 {
		if progress != nil {
			progress(100)
		}
		return nil
	}

	const maxParallel = 4
	g := new(errgroup.Group)
	g.SetLimit(maxParallel)

	done := make(chan struct{}, total)
	doneCount := 0
	progressDone := make(chan struct{})
	if progress != nil {
		go func() {
			for range done {
				doneCount++
				progress((doneCount * 100) / total)
			}
			close(progressDone)
		}()
	} else {
		close(progressDone)
	}

	for _, p := range files {
		p := p
		g.Go(func() error {
			destPath, err := joinSafely(dest, p.rel)
			if err != nil {
				return err
			}
			if err := extractZipFile(p.f, destPath); err != nil {
				return err
			}
			if runtime.GOOS == "darwin" {
				if err := maybeMarkExecutableMacho(destPath); err != nil {
					return err
				}
			}
			if progress != nil {
				done <- struct{}{}
			}
			return nil
		})
	}

	err := g.Wait()
	if progress != nil {
		close(done)
	}
	<-progressDone
	if err != nil {
		return err
	}

	for _, p := range symlinks {
		targetRel, err := readAll(p.f)
		if err != nil {
			return fmt.Errorf("bundle: reading symlink target for %s: %w", p.rel, err)
		}
		linkPath, err := joinSafely(dest, p.rel)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
			return err
		}
		os.Remove(linkPath)
		if err := os.Symlink(strings.TrimSpace(string(targetRel)), linkPath); err != nil {
			return fmt.Errorf("bundle: creating symlink %s: %w", linkPath, err)
		}
	}

	if progress != nil {
		progress(100)
	}
	return nil
}

// CopyToFile writes the whole zip payload as a .nupkg file at path,
// creating parent directories as needed.
func (r *Reader) CopyToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("bundle: creating parent dirs for %s: %w", path, err)
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("bundle: creating %s: %w", path, err)
	}
	defer out.Close()

	sr := io.NewSectionReader(r.ra, 0, r.size)
	if _, err := io.Copy(out, sr); err != nil {
		return fmt.Errorf("bundle: writing %s: %w", path, err)
	}
	return nil
}
