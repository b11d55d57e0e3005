// Package analyzer discovers inspection-capable components inside a
// materialized package.
//
// The pipeline only depends on the [Discoverer] contract: give it a package
// directory (and the shared cache as an auxiliary resolution path), get back
// the set of analyzer components found. How discovery happens is an
// implementation detail behind the interface; the default [Scanner] uses
// packaging conventions and lightweight binary inspection rather than
// loading assemblies into a runtime.
package analyzer

import "context"

// Component is one inspection-capable component found in a package.
// The pipeline treats it as an opaque handle; the deriver reads the
// diagnostic identifiers to build rule records.
type Component struct {
	Assembly      string   // Assembly name without extension (e.g., "Sample.Analyzers")
	Path          string   // Absolute path to the assembly file
	DiagnosticIDs []string // Diagnostic identifiers the component declares
}

// Discoverer scans a materialized package for analyzer components.
type Discoverer interface {
	// Discover walks packageDir and returns the analyzer components found.
	// cacheDir is an auxiliary path for resolving component dependencies
	// that aren't bundled with the package itself. An empty result with a
	// nil error means the package simply contains no analyzers.
	Discover(ctx context.Context, packageDir, cacheDir string) ([]Component, error)
}
