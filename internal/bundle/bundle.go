// Package bundle memory-maps the host executable, locates the embedded zip
// archive via the sentinel-marked header, and exposes a random-access view
// over its entries: the .nuspec manifest, the lib/<framework>/ application
// tree, the companion updater binary, and the optional splash image.
package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/exp/mmap"
)

var (
	errInvalidHeaderSize = errors.New("bundle: header is not 48 bytes")
	errBadSentinel       = errors.New("bundle: sentinel magic mismatch")
	// ErrUnfused is returned by Open when the host executable has no
	// sentinel or a zeroed header (not yet written by the authoring tool)
	// and no debug bundle path was supplied. Open does not distinguish
	// debug from release builds: whenever a debug path is passed, it opens
	// that file instead.
	ErrUnfused = errors.New("bundle: host executable is unfused")
)

const extractBufferSize = 64 * 1024

// Reader is a random-access view over a bundle's embedded zip.
type Reader struct {
	ra   io.ReaderAt
	size int64
	zr   *zip.Reader

	closer func() error
}

// Open memory-maps exePath, reads the header, and opens the embedded zip.
// If the header is zeroed (unfused) and debugBundlePath is non-empty, the
// reader falls back to opening that file directly instead -- mirroring the
// authoring tool's own development loop.
func Open(exePath string, debugBundlePath string) (*Reader, error) {
	ra, err := mmap.Open(exePath)
	if err != nil {
		return nil, fmt.Errorf("bundle: mmap %s: %w", exePath, err)
	}

	hdr, fused, err := readHeaderFromMapped(ra)
	if err != nil {
		ra.Close()
		return nil, fmt.Errorf("bundle: %w: %w", ErrBadHeader, err)
	}

	if !fused {
		ra.Close()
		if debugBundlePath == "" {
			return nil, ErrUnfused
		}
		return openFile(debugBundlePath)
	}

	if hdr.offset < 0 || hdr.length <= 0 || hdr.offset+hdr.length > int64(ra.Len()) {
		ra.Close()
		return nil, fmt.Errorf("bundle: %w: header addresses out of image bounds", ErrBadHeader)
	}

	section := io.NewSectionReader(ra, hdr.offset, hdr.length)
	zr, err := zip.NewReader(section, hdr.length)
	if err != nil {
		ra.Close()
		return nil, fmt.Errorf("bundle: %w: %w", ErrBadHeader, err)
	}

	return &Reader{ra: section, size: hdr.length, zr: zr, closer: ra.Close}, nil
}

// ErrBadHeader wraps header-parsing and zip-central-directory failures.
var ErrBadHeader = errors.New("bundle: corrupt header or embedded zip")

// OpenPackage opens a loose .nupkg -- a plain zip with no fused header --
// which is the form packages take once staged under packages/.
func OpenPackage(path string) (*Reader, error) {
	return openFile(path)
}

func openFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: opening debug bundle %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bundle: %w: %w", ErrBadHeader, err)
	}
	return &Reader{ra: f, size: fi.Size(), zr: zr, closer: f.Close}, nil
}

// Close releases the memory map (or debug file handle). It must be called
// before the host executable itself can be overwritten, which matters only
// for the updater's Squirrel.exe self-refresh path.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

type sizedReaderAt interface {
	io.ReaderAt
	Len() int
}

// readHeaderFromMapped scans the mapped image for the sentinel magic and
// decodes the offset/length pair stored in the 16 bytes preceding it. The
// placeholder has no position this reader can know in advance, so the
// sentinel is located by content rather than by position. A host with
// no sentinel at all, or a sentinel with a zeroed offset/length, is
// unfused rather than corrupt.
func readHeaderFromMapped(ra sizedReaderAt) (header, bool, error) {
	idx, err := findSentinel(ra)
	if err != nil {
		return header{}, false, err
	}
	if idx < 16 {
		return header{}, false, nil
	}

	buf := make([]byte, headerSize)
	if _, err := ra.ReadAt(buf, int64(idx-16)); err != nil && err != io.EOF {
		return header{}, false, err
	}
	return parseHeader(buf)
}

// findSentinel locates the first occurrence of sentinelMagic in the image,
// reading in 1 MiB chunks with an overlap so a sentinel straddling a chunk
// boundary is still found. Returns -1 when the image has no sentinel.
func findSentinel(ra sizedReaderAt) (int, error) {
	size := ra.Len()
	if size < headerSize {
		return -1, errInvalidHeaderSize
	}

	const chunkSize = 1 << 20
	overlap := len(sentinelMagic) - 1
	buf := make([]byte, chunkSize+overlap)

	for base := 0; base < size; base += chunkSize {
		n, err := ra.ReadAt(buf, int64(base))
		if err != nil && err != io.EOF {
			return -1, err
		}
		if i := bytes.Index(buf[:n], sentinelMagic[:]); i >= 0 {
			return base + i, nil
		}
		if base+n >= size {
			break
		}
	}
	return -1, nil
}

// Entry describes one file within the bundle's zip.
type Entry struct {
	Name string
	zf   *zip.File
}

// CalculateSize sums compressed and uncompressed sizes over all entries.
func (r *Reader) CalculateSize() (compressedTotal, uncompressedTotal uint64) {
	for _, f := range r.zr.File {
		compressedTotal += f.CompressedSize64
		uncompressedTotal += f.UncompressedSize64
	}
	return
}

// FindEntry returns the index of the first entry matching predicate, or -1.
func (r *Reader) FindEntry(predicate func(name string) bool) int {
	for i, f := range r.zr.File {
		if predicate(f.Name) {
			return i
		}
	}
	return -1
}

// Entries exposes the full ordered entry list, e.g. for iteration by callers
// that need more than a single predicate match.
func (r *Reader) Entries() []Entry {
	out := make([]Entry, len(r.zr.File))
	for i, f := range r.zr.File {
		out[i] = Entry{Name: f.Name, zf: f}
	}
	return out
}

// ReadManifest locates the lone *.nuspec entry and returns its raw bytes.
func (r *Reader) ReadManifest() ([]byte, error) {
	idx := r.FindEntry(func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), ".nuspec")
	})
	if idx < 0 {
		return nil, ErrMissingNuspec
	}
	return readAll(r.zr.File[idx])
}

// ErrMissingNuspec is returned by ReadManifest when no *.nuspec entry exists.
var ErrMissingNuspec = errors.New("bundle: no .nuspec entry found")

// ErrMissingUpdateExe is returned by ExtractUpdateExe when no companion
// binary entry exists.
var ErrMissingUpdateExe = errors.New("bundle: no Update.exe/Squirrel.exe entry found")

// GetSplashBytes returns the first entry whose name contains "splashimage",
// or nil if none exists.
func (r *Reader) GetSplashBytes() ([]byte, error) {
	idx := r.FindEntry(func(name string) bool {
		return strings.Contains(strings.ToLower(name), "splashimage")
	})
	if idx < 0 {
		return nil, nil
	}
	return readAll(r.zr.File[idx])
}

// ExtractUpdateExe streams the package's companion updater binary
// (Squirrel.exe on Windows, UpdateMac/UpdateNix elsewhere) to destPath,
// typically root/Update.exe.
func (r *Reader) ExtractUpdateExe(destPath string) error {
	idx := r.FindEntry(func(name string) bool {
		switch strings.ToLower(path.Base(name)) {
		case "squirrel.exe", "update.exe", "updatemac", "updatenix":
			return true
		}
		return false
	})
	if idx < 0 {
		return ErrMissingUpdateExe
	}
	return extractZipFile(r.zr.File[idx], destPath)
}

// ExtractEntry streams a single entry to destPath, creating parent
// directories as needed.
func (r *Reader) ExtractEntry(index int, destPath string) error {
	if index < 0 || index >= len(r.zr.File) {
		return fmt.Errorf("bundle: entry index %d out of range", index)
	}
	return extractZipFile(r.zr.File[index], destPath)
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// appTreePrefix matches "lib/<anything>/" -- the framework-qualified app
// tree root inside the package.
func appTreePrefix(name string) (rest string, ok bool) {
	const libPrefix = "lib/"
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, libPrefix) {
		return "", false
	}
	rest = name[len(libPrefix):]
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return "", false
	}
	return rest[idx+1:], true
}

const symlinkSuffix = ".__symlink"

// isSymlinkEntry reports whether name is a deferred symlink placeholder.
func isSymlinkEntry(name string) bool {
	return strings.HasSuffix(name, symlinkSuffix)
}

// symlinkRealName strips the placeholder suffix to recover the link's own
// path within the destination tree.
func symlinkRealName(name string) string {
	return strings.TrimSuffix(name, symlinkSuffix)
}

// joinSafely joins dest with the zip-internal relative path rel, rejecting
// any result that would escape dest (the "zip-slip" class of vulnerability),
// the way hashicorp/go-slug's extraction guards against path traversal in
// archive entries.
func joinSafely(dest, rel string) (string, error) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	cleanRel := path.Clean("/" + rel)[1:]
	full := filepath.Join(dest, cleanRel)
	if cleanRel == ".." || strings.HasPrefix(cleanRel, "../") {
		return "", fmt.Errorf("bundle: entry %q escapes destination directory", rel)
	}
	if !strings.HasPrefix(full, filepath.Clean(dest)+string(filepath.Separator)) && full != filepath.Clean(dest) {
		return "", fmt.Errorf("bundle: entry %q escapes destination directory", rel)
	}
	return full, nil
}
