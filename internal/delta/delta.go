// Package delta applies an ordered sequence of delta packages against an
// extracted base package, producing a new full package.
package delta

import (
	"fmt"
	"io"
	"math/bits"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/velopack/velogo/internal/manifest"
)

const (
	zsdiffExt = ".zsdiff"
	shasumExt = ".shasum"
	libPrefix = "lib/"

	// windowLogThreshold is the old-file size above which the Zstd decoder
	// window-log must be raised to avoid "Window too small" errors.
	windowLogThreshold = 64 * 1024 * 1024
)

// Delta is one delta package: the path to its .nupkg file.
type Delta struct {
	PackagePath string
}

// Apply extracts oldFullPackage, applies each delta in deltas (in order),
// and repacks the resulting work directory into outputFile. scratchDir is
// used as the parent for the per-step extraction directories and is left
// behind (not cleaned up) on any error, so the caller can inspect or clean
// up the partial state.
func Apply(oldFullPackage string, deltas []Delta, outputFile, scratchDir string) error {
	if err := checkDeltaOrder(deltas); err != nil {
		return err
	}

	workDir := filepath.Join(scratchDir, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return errors.Wrap(err, "delta: creating work directory")
	}

	if err := extractZipTo(oldFullPackage, workDir); err != nil {
		return errors.Wrap(err, "delta: extracting old full package")
	}

	for i, d := range deltas {
		deltaDir := filepath.Join(scratchDir, fmt.Sprintf("delta-%d", i))
		if err := os.MkdirAll(deltaDir, 0o755); err != nil {
			return errors.Wrapf(err, "delta: creating delta scratch dir %d", i)
		}
		if err := extractZipTo(d.PackagePath, deltaDir); err != nil {
			return errors.Wrapf(err, "delta: extracting delta package %d (%s)", i, d.PackagePath)
		}
		if err := applyOneDelta(workDir, deltaDir); err != nil {
			return errors.Wrapf(err, "delta: applying delta package %d (%s)", i, d.PackagePath)
		}
	}

	if err := repackZip(workDir, outputFile); err != nil {
		return errors.Wrap(err, "delta: repacking output")
	}
	return nil
}

// checkDeltaOrder enforces strictly increasing versions across the chain
// rather than trusting the caller's ordering. Packages whose file names do
// not follow the nupkg naming convention (e.g. a loose patch file) are not
// checked.
func checkDeltaOrder(deltas []Delta) error {
	var prev *semver.Version
	for _, d := range deltas {
		_, v, _, err := manifest.ParseFileName(filepath.Base(d.PackagePath))
		if err != nil {
			continue
		}
		if prev != nil && !v.GreaterThan(prev) {
			return errors.Errorf("delta: chain out of order: %s does not increase on %s", v, prev)
		}
		prev = v
	}
	return nil
}

// applyOneDelta applies every entry of a single extracted delta directory
// against workDir, then
// deletes from workDir anything not visited while applying this delta.
func applyOneDelta(workDir, deltaDir string) error {
	visited := make(map[string]bool)

	err := filepath.Walk(deltaDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(deltaDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		return applyDeltaEntry(workDir, deltaDir, rel, visited)
	})
	if err != nil {
		return err
	}

	return pruneUnvisited(workDir, visited)
}

func applyDeltaEntry(workDir, deltaDir, rel string, visited map[string]bool) error {
	lower := strings.ToLower(rel)

	if !strings.HasPrefix(lower, libPrefix) {
		// Metadata (not under lib/): always overwrite from the delta.
		return copyIntoWorkDir(deltaDir, workDir, rel, visited)
	}

	switch {
	case strings.HasSuffix(lower, zsdiffExt):
		base := rel[:len(rel)-len(zsdiffExt)]
		return applyZsdiff(workDir, deltaDir, rel, base, visited)
	case strings.HasSuffix(lower, shasumExt):
		// Checksum is already enforced by the Zstd patch step; ignore.
		return nil
	default:
		// A newly added file under lib/.
		return copyIntoWorkDir(deltaDir, workDir, rel, visited)
	}
}

func copyIntoWorkDir(deltaDir, workDir, rel string, visited map[string]bool) error {
	src := filepath.Join(deltaDir, filepath.FromSlash(rel))
	dst := filepath.Join(workDir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	visited[rel] = true
	return nil
}

// applyZsdiff applies a Zstd dictionary patch: old = workDir/base,
// patch = deltaDir/rel, new is synthesized then moved over old. A
// zero-length patch means "file unchanged" and is skipped outright.
func applyZsdiff(workDir, deltaDir, rel, base string, visited map[string]bool) error {
	patchPath := filepath.Join(deltaDir, filepath.FromSlash(rel))

	fi, err := os.Stat(patchPath)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		visited[base] = true
		return nil
	}

	oldPath := filepath.Join(workDir, filepath.FromSlash(base))
	oldBytes, err := os.ReadFile(oldPath)
	if err != nil {
		return errors.Wrapf(err, "reading base file %s for patch", base)
	}

	patchBytes, err := os.ReadFile(patchPath)
	if err != nil {
		return err
	}

	newBytes, err := decompressWithDictionary(patchBytes, oldBytes)
	if err != nil {
		return errors.Wrapf(err, "applying zstd patch to %s", base)
	}

	if err := os.WriteFile(oldPath, newBytes, 0o644); err != nil {
		return err
	}
	visited[base] = true
	return nil
}

// decompressWithDictionary decodes patch using old as a raw Zstd content
// dictionary. For old files larger than windowLogThreshold, the decoder
// window cap is raised to 1<<requiredWindowLog(len(old)) so large bases do
// not fail with a window-size error; the cap is only ever raised above the
// decoder's default, never lowered.
func decompressWithDictionary(patch, old []byte) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderDictRaw(0, old)}
	if len(old) > windowLogThreshold {
		if window := uint64(1) << requiredWindowLog(len(old)); window > zstd.MaxWindowSize {
			opts = append(opts, zstd.WithDecoderMaxWindow(window))
		}
	}

	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(patch, nil)
}

// requiredWindowLog computes ceil(log2(n))+1, the decoder window-log an
// old file of n bytes needs once it exceeds windowLogThreshold.
func requiredWindowLog(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n-1)) + 1
}

// pruneUnvisited deletes every regular file under dir that is not a key of
// visited (relative, slash-separated paths), matching "a file removed in
// this delta" semantics.
func pruneUnvisited(dir string, visited map[string]bool) error {
	var toRemove []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !visited[rel] {
			toRemove = append(toRemove, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, p := range toRemove {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	return removeEmptyDirs(dir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
