package nuget

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// nuspec is the package manifest embedded in every .nupkg archive.
// Optional metadata elements unmarshal to nil pointers when absent, which
// preserves the "field not supplied" semantics downstream manifest building
// depends on.
type nuspec struct {
	XMLName  xml.Name       `xml:"package"`
	Metadata nuspecMetadata `xml:"metadata"`
}

type nuspecMetadata struct {
	ID          string  `xml:"id"`
	Version     string  `xml:"version"`
	Title       *string `xml:"title"`
	Description *string `xml:"description"`
	Authors     *string `xml:"authors"`
	Owners      *string `xml:"owners"`
	ProjectURL  *string `xml:"projectUrl"`

	Dependencies nuspecDependencies `xml:"dependencies"`
}

// nuspecDependencies supports both flat dependency lists and
// per-target-framework groups; the flat list predates groups but is still
// emitted by older packaging tools.
type nuspecDependencies struct {
	Groups []nuspecGroup      `xml:"group"`
	Flat   []nuspecDependency `xml:"dependency"`
}

type nuspecGroup struct {
	TargetFramework string             `xml:"targetFramework,attr"`
	Dependencies    []nuspecDependency `xml:"dependency"`
}

type nuspecDependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

// parseNuspec decodes a nuspec document.
func parseNuspec(data []byte) (*nuspec, error) {
	var doc nuspec
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse nuspec: %w", err)
	}
	if doc.Metadata.ID == "" {
		return nil, fmt.Errorf("parse nuspec: missing package id")
	}
	return &doc, nil
}

// dependencies flattens groups and the flat list into a deduplicated
// dependency set, preserving first-seen order.
func (n *nuspec) dependencies() []Dependency {
	seen := make(map[string]bool)
	var deps []Dependency

	add := func(d nuspecDependency) {
		key := NormalizeID(d.ID)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		deps = append(deps, Dependency{ID: d.ID, VersionRange: d.Version})
	}

	for _, d := range n.Metadata.Dependencies.Flat {
		add(d)
	}
	for _, g := range n.Metadata.Dependencies.Groups {
		for _, d := range g.Dependencies {
			add(d)
		}
	}
	return deps
}

// splitList splits a comma-separated nuspec list field (authors, owners)
// into a trimmed slice. A nil or blank input yields nil, not an empty slice,
// keeping absent lists absent.
func splitList(s *string) []string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(*s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
