package proc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSubPathComponentWise(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "JamLogic")
	siblingLookalike := filepath.Join(base, "JamLogicDev")

	assert.False(t, IsSubPath(siblingLookalike, dir))
	assert.False(t, IsSubPath(dir, siblingLookalike))
}

func TestIsSubPathSelf(t *testing.T) {
	base := t.TempDir()
	assert.True(t, IsSubPath(base, base))
}

func TestIsSubPathChild(t *testing.T) {
	base := t.TempDir()
	child := filepath.Join(base, "current", "app.exe")
	assert.True(t, IsSubPath(child, base))
}

func TestIsSubPathRelativeInputsAreFalseNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.False(t, IsSubPath("", "somewhere"))
	})
}

func TestIsSubPathRelativePathIsFalse(t *testing.T) {
	base := t.TempDir()

	assert.False(t, IsSubPath("foo/bar", base))
	assert.False(t, IsSubPath(filepath.Join(base, "current", "app.exe"), "foo"))
	assert.False(t, IsSubPath("foo/bar", "foo"))
}

func TestIsSubPathNotPrefixString(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "Foo")
	lookalike := filepath.Join(base, "FooBar", "nested")
	assert.False(t, IsSubPath(lookalike, dir))
}
