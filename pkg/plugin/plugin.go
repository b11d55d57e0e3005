// Package plugin assembles the installable plugin artifact: a jar carrying
// a manifest derived from the source package's metadata and the rules
// definition document.
package plugin

import (
	"context"

	"github.com/rulesmith/rulesmith/pkg/rules"
)

// LanguageTag is the analysis language the generated plugins target.
const LanguageTag = "cs"

// Packager builds the final artifact from a manifest and a rule catalog.
type Packager interface {
	// Package writes the artifact into artifactDir and returns its path.
	Package(ctx context.Context, manifest *Manifest, catalog *rules.Catalog, artifactDir string) (string, error)
}
