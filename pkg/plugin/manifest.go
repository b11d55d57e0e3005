package plugin

import (
	"strings"

	"github.com/rulesmith/rulesmith/pkg/nuget"
)

// manifest header values must be single-line; embedded line breaks each
// collapse to one space.
var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// Manifest holds the plugin's descriptor attributes. Key, Name and Version
// are always present; pointer fields are omitted from the manifest when nil.
// Absent and empty are distinct: an empty string still emits the header.
type Manifest struct {
	Key          string
	Name         string
	Version      string
	Description  *string
	Homepage     *string
	Developers   []string
	Organization []string
}

// Entry is one manifest header.
type Entry struct {
	Key   string
	Value string
}

// BuildManifest derives the plugin manifest from package metadata.
// The package title names the plugin when present and non-blank; otherwise
// the package id doubles as the name.
func BuildManifest(pkg *nuget.Package) *Manifest {
	m := &Manifest{
		Key:          pkg.ID,
		Name:         pkg.ID,
		Version:      pkg.Version.String(),
		Description:  pkg.Description,
		Homepage:     pkg.ProjectURL,
		Developers:   pkg.Authors,
		Organization: pkg.Owners,
	}
	if pkg.Title != nil && strings.TrimSpace(*pkg.Title) != "" {
		m.Name = *pkg.Title
	}
	return m
}

// Entries renders the manifest headers in stable order, sanitized for the
// single-line manifest format. List values join with commas; the format has
// no escaping, so values containing commas stay ambiguous by design of the
// format itself.
func (m *Manifest) Entries() []Entry {
	entries := []Entry{
		{"Plugin-Key", sanitize(m.Key)},
		{"Plugin-Name", sanitize(m.Name)},
		{"Plugin-Version", sanitize(m.Version)},
		{"Plugin-Language", LanguageTag},
	}

	if m.Description != nil {
		entries = append(entries, Entry{"Plugin-Description", sanitize(*m.Description)})
	}
	if m.Homepage != nil {
		entries = append(entries, Entry{"Plugin-Homepage", sanitize(*m.Homepage)})
	}
	if m.Developers != nil {
		entries = append(entries, Entry{"Plugin-Developers", sanitize(strings.Join(m.Developers, ","))})
	}
	if m.Organization != nil {
		entries = append(entries, Entry{"Plugin-Organization", sanitize(strings.Join(m.Organization, ","))})
	}

	return entries
}

// sanitize collapses line breaks to spaces. Replacing each break character
// with exactly one space keeps the transformation idempotent.
func sanitize(value string) string {
	return lineBreaks.Replace(value)
}
