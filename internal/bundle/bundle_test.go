package bundle

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildFusedExe(t *testing.T, zipBytes []byte) string {
	t.Helper()

	dir := t.TempDir()
	exePath := filepath.Join(dir, "host.exe")

	var out bytes.Buffer
	out.WriteString("fake-linker-stub-bytes-before-header")

	hdr := make([]byte, headerSize)
	offset := int64(out.Len()) + headerSize
	putLE64(hdr[0:8], offset)
	putLE64(hdr[8:16], int64(len(zipBytes)))
	copy(hdr[16:48], sentinelMagic[:])
	out.Write(hdr)
	out.Write(zipBytes)

	require.NoError(t, os.WriteFile(exePath, out.Bytes(), 0o755))
	return exePath
}

func putLE64(b []byte, v int64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestOpenFusedBundle(t *testing.T) {
	zipBytes := buildTestZip(t, map[string]string{
		"Sample.nuspec": "<package><metadata><id>Sample</id><version>1.0.0</version></metadata></package>",
		"lib/net6.0/Sample.exe": "binary-content",
	})
	exePath := buildFusedExe(t, zipBytes)

	r, err := Open(exePath, "")
	require.NoError(t, err)
	defer r.Close()

	manifestBytes, err := r.ReadManifest()
	require.NoError(t, err)
	assert.Contains(t, string(manifestBytes), "<id>Sample</id>")
}

func TestOpenUnfusedWithoutDebugPath(t *testing.T) {
	dir := t.TempDir()
	exePath := filepath.Join(dir, "host.exe")
	require.NoError(t, os.WriteFile(exePath, bytes.Repeat([]byte{0}, 200), 0o755))

	_, err := Open(exePath, "")
	require.ErrorIs(t, err, ErrUnfused)
}

func TestExtractAppTree(t *testing.T) {
	zipBytes := buildTestZip(t, map[string]string{
		"Sample.nuspec":               "<package/>",
		"lib/net6.0/Sample.exe":       "exe-bytes",
		"lib/net6.0/sub/data.txt":     "data-bytes",
		"lib/net6.0/readme.txt":       "readme",
		"unrelated/ignored.txt":       "should not extract",
	})
	exePath := buildFusedExe(t, zipBytes)

	r, err := Open(exePath, "")
	require.NoError(t, err)
	defer r.Close()

	dest := t.TempDir()
	var lastProgress int
	err = r.ExtractAppTree(dest, func(p int) { lastProgress = p })
	require.NoError(t, err)
	assert.Equal(t, 100, lastProgress)

	assert.FileExists(t, filepath.Join(dest, "Sample.exe"))
	assert.FileExists(t, filepath.Join(dest, "sub", "data.txt"))
	assert.FileExists(t, filepath.Join(dest, "readme.txt"))
	assert.NoFileExists(t, filepath.Join(dest, "ignored.txt"))
}

func TestCalculateSize(t *testing.T) {
	zipBytes := buildTestZip(t, map[string]string{
		"a.nuspec": "12345",
		"lib/net6.0/b.txt": "abcdefgh",
	})
	exePath := buildFusedExe(t, zipBytes)

	r, err := Open(exePath, "")
	require.NoError(t, err)
	defer r.Close()

	_, uncompressed := r.CalculateSize()
	assert.Equal(t, uint64(len("12345")+len("abcdefgh")), uncompressed)
}

func TestReadManifestMissing(t *testing.T) {
	zipBytes := buildTestZip(t, map[string]string{
		"lib/net6.0/b.txt": "x",
	})
	exePath := buildFusedExe(t, zipBytes)

	r, err := Open(exePath, "")
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadManifest()
	require.ErrorIs(t, err, ErrMissingNuspec)
}
