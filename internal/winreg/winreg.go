// Package winreg writes and removes the per-user "installed programs"
// listing and custom URL protocol registrations. The
// Windows backend is the only one that touches the real registry; other
// platforms implement the same Entry type as a no-op so orchestrators stay
// platform-agnostic.
package winreg

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// Entry is everything C8 needs to populate one Uninstall registry key.
type Entry struct {
	AppID                string
	DisplayIcon          string // main_exe path
	DisplayName          string // title
	DisplayVersion       string // major.minor.patch
	InstallDate          string // YYYYMMDD
	InstallLocation      string // root
	Publisher            string // authors
	UninstallString      string
	QuietUninstallString string
	EstimatedSizeKB      uint64
}

// DisplayVersionString formats v as the bare major.minor.patch triple the
// installed-programs list expects, dropping any prerelease tag.
func DisplayVersionString(v *semver.Version) string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// Write creates or overwrites the Uninstall key for e.AppID. Portable
// installs never call this.
func Write(e Entry) error {
	return write(e)
}

// Remove deletes the Uninstall key for appID, if present.
func Remove(appID string) error {
	return remove(appID)
}

// Exists reports whether an Uninstall key for appID is present. Nothing in
// this module calls it; internal/locator derives Locator.IsPortable from
// whatever probe is passed to WithRegistryProbe.
func Exists(appID string) (bool, error) {
	return exists(appID)
}

// URLProtocol describes one custom URL scheme registration.
type URLProtocol struct {
	Scheme  string
	MainExe string
}

// RegisterURLProtocols creates or overwrites HKCU\Software\Classes\<scheme>
// for each next protocol, and removes any protocol present in prev but
// absent from next.
func RegisterURLProtocols(prev, next []string, mainExe string) error {
	prevSet := make(map[string]bool, len(prev))
	for _, s := range prev {
		prevSet[s] = true
	}
	nextSet := make(map[string]bool, len(next))
	for _, s := range next {
		nextSet[s] = true
	}

	for _, scheme := range next {
		if err := registerURLProtocol(scheme, mainExe); err != nil {
			return err
		}
	}
	for scheme := range prevSet {
		if !nextSet[scheme] {
			if err := removeURLProtocol(scheme); err != nil {
				return err
			}
		}
	}
	return nil
}
