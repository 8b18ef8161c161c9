// Package proc enumerates processes whose executables live within a
// directory subtree, waits for a PID to exit by identity (not just number),
// terminates processes holding files open in the install tree, and
// relaunches the current executable elevated.
package proc

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// IsSubPath reports whether path, after normalisation, expansion, and (on
// Windows) long-name resolution, equals dir or has dir as a strict
// component prefix. It never panics on relative input -- it returns false
// instead of raising.
//
// Comparison is component-wise, never a raw string prefix check, so
// "C:\AppData\JamLogic" never matches "C:\AppData\JamLogicDev".
func IsSubPath(path, dir string) bool {
	np, ok1 := normalizePath(path)
	nd, ok2 := normalizePath(dir)
	if !ok1 || !ok2 {
		return false
	}

	if equalPath(np, nd) {
		return true
	}

	pComponents := splitComponents(np)
	dComponents := splitComponents(nd)
	if len(dComponents) > len(pComponents) {
		return false
	}

	for i, dc := range dComponents {
		if !equalComponent(pComponents[i], dc) {
			return false
		}
	}
	return true
}

// normalizePath expands environment variables and cleans ".." segments.
// Inputs that are not already absolute -- including the empty string -- are
// rejected by returning ok=false rather than resolved against the process's
// working directory.
func normalizePath(p string) (string, bool) {
	if p == "" || !filepath.IsAbs(p) {
		return "", false
	}
	expanded := os.ExpandEnv(p)
	if !filepath.IsAbs(expanded) {
		return "", false
	}
	cleaned := filepath.Clean(expanded)
	resolved, ok := resolveLongName(cleaned)
	if !ok {
		return "", false
	}
	return resolved, true
}

func splitComponents(p string) []string {
	p = filepath.ToSlash(p)
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func equalComponent(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func equalPath(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
