package update

import (
	"fmt"
	"os"
)

// atomicSwap attempts an OS-level rename of src to dst, falling back to
// mirrorCopy (and then removing src) when the rename fails -- typically
// because some other process still holds a file handle open inside src
// (atomic rename first, walk-and-copy with fsync as the portable fallback).
// usedFallback reports whether the slower path was taken.
func atomicSwap(src, dst string) (usedFallback bool, err error) {
	if err := os.Rename(src, dst); err == nil {
		return false, nil
	}

	if err := mirrorCopy(src, dst); err != nil {
		return true, fmt.Errorf("update: mirror-copy fallback from %s to %s: %w", src, dst, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return true, fmt.Errorf("update: removing source %s after mirror-copy: %w", src, err)
	}
	return true, nil
}
