package delta

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	kcompress "github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

// registerFastestCompressor wires the zip writer's Deflate method to
// klauspost/compress's flate implementation at BestSpeed.
func registerFastestCompressor(zw *zip.Writer) {
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return kcompress.NewWriter(w, kcompress.BestSpeed)
	})
}

// extractZipTo extracts every entry of the zip at zipPath into destDir.
func extractZipTo(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", zipPath)
	}
	defer r.Close()

	for _, f := range r.File {
		destPath := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			rc.Close()
			return err
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		out.Close()
		if copyErr != nil {
			return copyErr
		}
	}
	return nil
}

// repackZip zips the full contents of srcDir into outputFile using the
// fastest compression level.
func repackZip(srcDir, outputFile string) error {
	out, err := os.OpenFile(outputFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	registerFastestCompressor(zw)

	if err := writeZipEntries(zw, srcDir); err != nil {
		zw.Close()
		out.Close()
		return err
	}

	// Close flushes the central directory; losing its error would report a
	// truncated archive as a successful composition.
	if err := zw.Close(); err != nil {
		out.Close()
		return errors.Wrapf(err, "finalizing %s", outputFile)
	}
	return out.Close()
}

func writeZipEntries(zw *zip.Writer, srcDir string) error {
	var paths []string
	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		hdr := &zip.FileHeader{
			Name:   filepath.ToSlash(rel),
			Method: zip.Deflate,
		}
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		hdr.SetModTime(fi.ModTime())
		hdr.SetMode(fi.Mode())

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(w, in)
		in.Close()
		if copyErr != nil {
			return copyErr
		}
	}
	return nil
}

// removeEmptyDirs removes any directory under dir that no longer contains
// files after pruning, working bottom-up so nested empties collapse fully.
func removeEmptyDirs(dir string) error {
	var dirs []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != dir {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Deepest paths first.
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			os.Remove(d)
		}
	}
	return nil
}
