//go:build windows

package shortcut

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/velopack/velogo/internal/manifest"
	"github.com/velopack/velogo/internal/proc"
)

// writeShellLink creates or overwrites the .lnk file at lnkPath with the
// given target, working directory, and icon, via the shell's scripting
// object. Must run inside an STA apartment (see runOnSTAWorker).
func writeShellLink(lnkPath, target, workDir, icon, amuid string) error {
	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return fmt.Errorf("shortcut: CreateObject(WScript.Shell): %w", err)
	}
	defer unknown.Release()

	wshell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return err
	}
	defer wshell.Release()

	csv, err := oleutil.CallMethod(wshell, "CreateShortcut", lnkPath)
	if err != nil {
		return fmt.Errorf("shortcut: CreateShortcut(%s): %w", lnkPath, err)
	}
	lnk := csv.ToIDispatch()
	defer lnk.Release()

	if _, err := oleutil.PutProperty(lnk, "TargetPath", target); err != nil {
		return err
	}
	if _, err := oleutil.PutProperty(lnk, "WorkingDirectory", workDir); err != nil {
		return err
	}
	if icon != "" {
		if _, err := oleutil.PutProperty(lnk, "IconLocation", icon+",0"); err != nil {
			return err
		}
	}

	// AUMID lives in the shortcut's property store (PKEY_AppUserModel_ID),
	// which the scripting object does not expose. Treated as best-effort;
	// taskbar grouping falls back to the target path.
	_ = amuid

	if _, err := oleutil.CallMethod(lnk, "Save"); err != nil {
		return fmt.Errorf("shortcut: saving %s: %w", lnkPath, err)
	}
	return nil
}

// CreateOrUpdate writes a shortcut at the well-known path for loc, pointed
// at target.MainExe.
func CreateOrUpdate(loc manifest.ShortcutLocation, target Target) error {
	dir, err := wellKnownDir(loc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	name := target.Title
	if name == "" {
		name = filepath.Base(target.MainExe)
	}
	lnkPath := filepath.Join(dir, FileName(name))

	return runOnSTAWorker(func() error {
		return writeShellLink(lnkPath, target.MainExe, target.CurrentBinDir, target.MainExe, target.AMUID)
	})
}

// Remove deletes the shortcut at the well-known path for loc matching
// title, unpinning it first if it was pinned, then, for the two start-menu
// locations, removes the parent folder if it is now empty.
func Remove(loc manifest.ShortcutLocation, title string) error {
	dir, err := wellKnownDir(loc)
	if err != nil {
		return err
	}
	lnkPath := filepath.Join(dir, FileName(title))

	if err := unpinIfPinned(lnkPath); err != nil {
		// Best-effort: an unpin failure should not block removal.
		_ = err
	}

	if err := os.Remove(lnkPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	removeIfEmptyParent(dir, loc)
	return nil
}

// Enumerate lists existing shortcuts under loc whose target or working
// directory is a sub-path of installRoot.
func Enumerate(loc manifest.ShortcutLocation, installRoot string) ([]string, error) {
	dir, err := wellKnownDir(loc)
	if err != nil {
		return nil, err
	}

	var matches []string
	entries, err := globLnk(dir, loc == manifest.LocationStartMenu || loc == manifest.LocationStartMenuRoot)
	if err != nil {
		return nil, err
	}

	for _, lnkPath := range entries {
		target, workDir, _, ok := readShellLink(lnkPath)
		if !ok {
			continue
		}
		if proc.IsSubPath(target, installRoot) || proc.IsSubPath(workDir, installRoot) {
			matches = append(matches, lnkPath)
		}
	}
	return matches, nil
}

// RenameMatching handles a display-title change between versions: among
// existing shortcuts whose target is the new main exe and which carry no
// custom arguments, the best filename match by Jaro-Winkler similarity to
// the previous title is renamed to "{new title}.lnk".
func RenameMatching(prev, next Target) error {
	if prev.Title == "" || next.Title == "" || prev.Title == next.Title {
		return nil
	}

	var candidates []string
	for _, loc := range allLocations {
		found, err := Enumerate(loc, next.InstallRoot)
		if err != nil {
			continue
		}
		for _, lnkPath := range found {
			target, _, args, ok := readShellLink(lnkPath)
			if !ok || args != "" {
				continue
			}
			if strings.EqualFold(filepath.Base(target), filepath.Base(next.MainExe)) {
				candidates = append(candidates, lnkPath)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = strings.TrimSuffix(filepath.Base(c), filepath.Ext(c))
	}
	best := BestMatch(prev.Title, names)
	if best < 0 {
		return nil
	}

	oldPath := candidates[best]
	newPath := filepath.Join(filepath.Dir(oldPath), FileName(next.Title))
	if strings.EqualFold(oldPath, newPath) {
		return nil
	}
	return os.Rename(oldPath, newPath)
}

// readShellLink resolves a .lnk's target path, working directory, and
// arguments. CreateShortcut on an existing path loads it rather than
// starting blank.
func readShellLink(lnkPath string) (target, workDir, args string, ok bool) {
	err := runOnSTAWorker(func() error {
		unknown, err := oleutil.CreateObject("WScript.Shell")
		if err != nil {
			return err
		}
		defer unknown.Release()

		wshell, err := unknown.QueryInterface(ole.IID_IDispatch)
		if err != nil {
			return err
		}
		defer wshell.Release()

		csv, err := oleutil.CallMethod(wshell, "CreateShortcut", lnkPath)
		if err != nil {
			return err
		}
		lnk := csv.ToIDispatch()
		defer lnk.Release()

		if v, err := oleutil.GetProperty(lnk, "TargetPath"); err == nil {
			target = v.ToString()
		}
		if v, err := oleutil.GetProperty(lnk, "WorkingDirectory"); err == nil {
			workDir = v.ToString()
		}
		if v, err := oleutil.GetProperty(lnk, "Arguments"); err == nil {
			args = v.ToString()
		}
		return nil
	})
	return target, workDir, args, err == nil && target != ""
}

func globLnk(dir string, recursive bool) ([]string, error) {
	var out []string
	if recursive {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".lnk") {
				out = append(out, path)
			}
			return nil
		})
		return out, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".lnk") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func removeIfEmptyParent(dir string, loc manifest.ShortcutLocation) {
	if loc != manifest.LocationStartMenu && loc != manifest.LocationStartMenuRoot {
		return
	}
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		os.Remove(dir)
	}
}
