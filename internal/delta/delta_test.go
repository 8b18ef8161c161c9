package delta

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func readZipContents(t *testing.T, path string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := map[string][]byte{}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = buf.Bytes()
	}
	return out
}

func makeZsdiffPatch(t *testing.T, old, new []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderDictRaw(0, old))
	require.NoError(t, err)
	patch := enc.EncodeAll(new, nil)
	require.NoError(t, enc.Close())
	return patch
}

func TestApplySingleDeltaModifiesAddsRemoves(t *testing.T) {
	dir := t.TempDir()

	oldContent := bytes.Repeat([]byte("hello-old-content "), 50)
	newContent := bytes.Repeat([]byte("hello-new-content! "), 50)

	oldPkg := filepath.Join(dir, "old-full.nupkg")
	writeZip(t, oldPkg, map[string][]byte{
		"Sample.nuspec":          []byte("<package/>"),
		"lib/net6.0/changed.txt": oldContent,
		"lib/net6.0/removed.txt": []byte("will be removed"),
		"lib/net6.0/kept.txt":    []byte("stays the same but must be re-listed"),
	})

	patch := makeZsdiffPatch(t, oldContent, newContent)
	deltaPkg := filepath.Join(dir, "delta.nupkg")
	writeZip(t, deltaPkg, map[string][]byte{
		"Sample.nuspec":                []byte("<package/>"), // metadata, always overwritten
		"lib/net6.0/changed.txt.zsdiff": patch,
		"lib/net6.0/kept.txt.zsdiff":     {}, // zero-length: unchanged
		"lib/net6.0/added.txt":           []byte("brand new file"),
		// removed.txt has no entry at all: gets pruned.
	})

	outFile := filepath.Join(dir, "new-full.nupkg")
	scratch := filepath.Join(dir, "scratch")

	err := Apply(oldPkg, []Delta{{PackagePath: deltaPkg}}, outFile, scratch)
	require.NoError(t, err)

	contents := readZipContents(t, outFile)
	assert.Equal(t, newContent, contents["lib/net6.0/changed.txt"])
	assert.Equal(t, []byte("stays the same but must be re-listed"), contents["lib/net6.0/kept.txt"])
	assert.Equal(t, []byte("brand new file"), contents["lib/net6.0/added.txt"])
	_, removedStillThere := contents["lib/net6.0/removed.txt"]
	assert.False(t, removedStillThere)
}

func TestDecompressWithDictionaryRoundTrip(t *testing.T) {
	old := bytes.Repeat([]byte("the quick brown fox "), 200)
	new := bytes.Repeat([]byte("the quick brown foxes "), 200)

	patch := makeZsdiffPatch(t, old, new)
	got, err := decompressWithDictionary(patch, old)
	require.NoError(t, err)
	assert.Equal(t, new, got)
}

func TestRequiredWindowLog(t *testing.T) {
	assert.Equal(t, 1, requiredWindowLog(1))
	assert.Equal(t, 7, requiredWindowLog(64))
	assert.True(t, requiredWindowLog(1<<26) >= 27)
}
