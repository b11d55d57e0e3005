// Package pipeline provides the core plugin generation pipeline.
//
// This package implements the complete acquire → discover → derive → package
// pipeline that can be used by CLI and API components. By centralizing this
// logic, we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Acquire: Materialize the package (and its dependency closure) from the feed
//  2. Discover: Find analyzer components inside the materialized package
//  3. Derive: Turn declared diagnostics into a rule catalog
//  4. Package: Assemble the installable plugin artifact
//
// A run that finds the package always reports success: failures past the
// acquire stage degrade the outcome instead of failing the run, so a package
// without analyzers still yields a useful (if empty-handed) result.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(pipeline.RunnerOptions{Logger: logger})
//	opts := pipeline.Options{
//	    PackageID: "Sample.Analyzers",
//	    Version:   "1.2.0",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if result.Found() {
//	    fmt.Println(result.ArtifactPath)
//	}
package pipeline

import (
	"io"
	"time"

	"github.com/blang/semver"
	"github.com/charmbracelet/log"

	"github.com/rulesmith/rulesmith/pkg/errors"
	"github.com/rulesmith/rulesmith/pkg/nuget"
)

// Outcome describes how far a run progressed.
type Outcome int

const (
	// OutcomeNotFound means the requested package or version does not exist
	// on the feed. The only outcome where Found() reports false.
	OutcomeNotFound Outcome = iota

	// OutcomeNoAnalyzers means the package was materialized but no analyzer
	// components (or no rules) could be derived from it.
	OutcomeNoAnalyzers

	// OutcomeRulesWritten means rules were derived and written, but the
	// artifact could not be assembled.
	OutcomeRulesWritten

	// OutcomePackaged means the full artifact was produced.
	OutcomePackaged
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not-found"
	case OutcomeNoAnalyzers:
		return "no-analyzers"
	case OutcomeRulesWritten:
		return "rules-written"
	case OutcomePackaged:
		return "packaged"
	default:
		return "unknown"
	}
}

// Options contains all configuration for the generation pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Acquire options
	PackageID string `json:"package_id"`
	Version   string `json:"version"`
	Source    string `json:"source,omitempty"`
	Refresh   bool   `json:"refresh,omitempty"`

	// Package options
	ArtifactDir string `json:"artifact_dir,omitempty"` // Default: current directory

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// parsedVersion is populated by ValidateAndSetDefaults.
	parsedVersion semver.Version

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once. Validation happens before any I/O: a run with invalid
// input never touches the feed or the filesystem.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if err := errors.ValidatePackageID(o.PackageID); err != nil {
		return err
	}

	version, err := semver.ParseTolerant(o.Version)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid version %q", o.Version)
	}
	o.parsedVersion = version

	if o.Source == "" {
		o.Source = nuget.DefaultSourceURL
	}
	if err := errors.ValidateSourceURL(o.Source); err != nil {
		return err
	}

	if o.ArtifactDir == "" {
		o.ArtifactDir = "."
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// SemVersion returns the parsed version. Only valid after
// ValidateAndSetDefaults.
func (o *Options) SemVersion() semver.Version {
	return o.parsedVersion
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Outcome is how far the run progressed.
	Outcome Outcome `json:"outcome"`

	// Package is the materialized package. Nil when the package was not found.
	Package *nuget.Package `json:"-"`

	// RuleCount is the number of rules derived.
	RuleCount int `json:"rule_count"`

	// RulesPath is the written rules definition document, when rules were
	// derived.
	RulesPath string `json:"rules_path,omitempty"`

	// ArtifactPath is the assembled plugin artifact, when packaging succeeded.
	ArtifactPath string `json:"artifact_path,omitempty"`

	// Stats contains timing and size information.
	Stats Stats `json:"stats"`
}

// Found reports whether the requested package exists on the feed. A true
// value says nothing about analyzers or rules: a found package with no
// analyzer components still counts as found.
func (r *Result) Found() bool {
	return r.Outcome != OutcomeNotFound
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ComponentCount int           `json:"component_count"`
	FetchTime      time.Duration `json:"fetch_time"`
	DiscoverTime   time.Duration `json:"discover_time"`
	DeriveTime     time.Duration `json:"derive_time"`
	PackageTime    time.Duration `json:"package_time"`
}
