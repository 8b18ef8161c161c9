// Package manifest parses and validates the per-package descriptor embedded
// in a bundle's .nuspec entry, and derives the on-disk paths and identity
// keys that the rest of the system keys off of.
package manifest

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// ShortcutLocation is a single well-known shell shortcut location.
type ShortcutLocation int

const (
	LocationDesktop ShortcutLocation = iota
	LocationStartup
	LocationStartMenu
	LocationStartMenuRoot
	LocationUserPinned
)

// LocationSet is a bitfield over the well-known shortcut locations.
type LocationSet uint8

func (s LocationSet) Has(loc ShortcutLocation) bool { return s&(1<<loc) != 0 }
func (s LocationSet) With(loc ShortcutLocation) LocationSet {
	return s | (1 << loc)
}
func (s LocationSet) Without(loc ShortcutLocation) LocationSet {
	return s &^ (1 << loc)
}

// Difference returns s minus other.
func (s LocationSet) Difference(other LocationSet) LocationSet { return s &^ other }

// Intersection returns the locations present in both sets.
func (s LocationSet) Intersection(other LocationSet) LocationSet { return s & other }

// locationNames is keyed by the upper-cased token with underscores removed,
// so "StartMenu" and "START_MENU" name the same location.
var locationNames = map[string]ShortcutLocation{
	"DESKTOP":       LocationDesktop,
	"STARTUP":       LocationStartup,
	"STARTMENU":     LocationStartMenu,
	"STARTMENUROOT": LocationStartMenuRoot,
	"USERPINNED":    LocationUserPinned,
}

func parseLocations(csv string) LocationSet {
	var set LocationSet
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(tok)), "_", "")
		if tok == "" {
			continue
		}
		if loc, ok := locationNames[tok]; ok {
			set = set.With(loc)
		}
	}
	return set
}

// nuspecXML mirrors the subset of the NuGet .nuspec schema that Velopack
// packages populate under <metadata>.
type nuspecXML struct {
	Metadata struct {
		ID                  string `xml:"id"`
		Version             string `xml:"version"`
		Title               string `xml:"title"`
		Authors             string `xml:"authors"`
		Description         string `xml:"description"`
		MachineArchitecture string `xml:"machineArchitecture"`
		RuntimeDependencies string `xml:"runtimeDependencies"`
		MainExe             string `xml:"mainExe"`
		OS                  string `xml:"os"`
		OSMinVersion        string `xml:"osMinVersion"`
		Channel             string `xml:"channel"`
		ShortcutLocations   string `xml:"shortcutLocations"`
		ShortcutAmuid       string `xml:"shortcutAmuid"`
		CustomURLProtocols  string `xml:"customUrlProtocols"`
	} `xml:"metadata"`
}

// Manifest is the parsed and validated per-package descriptor.
type Manifest struct {
	ID                  string
	Version             *semver.Version
	Title               string
	Authors             string
	Description         string
	MachineArchitecture string
	RuntimeDependencies []string
	MainExe             string
	OS                  string
	OSMinVersion        string
	Channel             string
	ShortcutLocations   LocationSet
	ShortcutAMUID       string
	CustomURLProtocols  []string
}

// Parse parses raw .nuspec XML bytes into a validated Manifest.
//
// requireMainExe should be true when the current platform mandates a main
// executable (Windows always does; other platforms derive it from OS).
func Parse(nuspec []byte, requireMainExe bool) (*Manifest, error) {
	var x nuspecXML
	if err := xml.Unmarshal(nuspec, &x); err != nil {
		return nil, errors.Wrap(err, "parsing nuspec xml")
	}

	m := x.Metadata
	if strings.TrimSpace(m.ID) == "" {
		return nil, errors.New("manifest: id is required")
	}
	if strings.TrimSpace(m.Version) == "" {
		return nil, errors.New("manifest: version is required")
	}
	ver, err := semver.NewVersion(m.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest: version %q does not parse", m.Version)
	}

	title := m.Title
	if title == "" {
		title = m.ID
	}

	if requireMainExe && strings.TrimSpace(m.MainExe) == "" {
		return nil, errors.New("manifest: mainExe is required for this platform")
	}

	var deps []string
	for _, d := range strings.Split(m.RuntimeDependencies, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			deps = append(deps, d)
		}
	}

	var protocols []string
	for _, p := range strings.Split(m.CustomURLProtocols, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			protocols = append(protocols, p)
		}
	}

	return &Manifest{
		ID:                  m.ID,
		Version:             ver,
		Title:               title,
		Authors:             m.Authors,
		Description:         m.Description,
		MachineArchitecture: m.MachineArchitecture,
		RuntimeDependencies: deps,
		MainExe:             m.MainExe,
		OS:                  m.OS,
		OSMinVersion:        m.OSMinVersion,
		Channel:             m.Channel,
		ShortcutLocations:   parseLocations(m.ShortcutLocations),
		ShortcutAMUID:       m.ShortcutAmuid,
		CustomURLProtocols:  protocols,
	}, nil
}

// PackageFileName computes the canonical full-package file name for this
// manifest: "{id}-{version}-full.nupkg".
func (m *Manifest) PackageFileName() string {
	return fmt.Sprintf("%s-%s-full.nupkg", m.ID, m.Version.String())
}

// DeltaFileName computes the canonical delta-package file name for this
// manifest: "{id}-{version}-delta.nupkg".
func (m *Manifest) DeltaFileName() string {
	return fmt.Sprintf("%s-%s-delta.nupkg", m.ID, m.Version.String())
}
