package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rulesmith/rulesmith/pkg/analyzer"
	"github.com/rulesmith/rulesmith/pkg/httputil"
	"github.com/rulesmith/rulesmith/pkg/nuget"
	"github.com/rulesmith/rulesmith/pkg/observability"
	"github.com/rulesmith/rulesmith/pkg/plugin"
	"github.com/rulesmith/rulesmith/pkg/rules"
	"github.com/rulesmith/rulesmith/pkg/workspace"
)

// toolName names the workspace directory under the system temp root.
const toolName = "rulesmith"

// Runner encapsulates pipeline execution.
//
// The Runner is stateless except for its collaborators and logger - it
// doesn't store run results. Multiple goroutines can safely use the same
// Runner with different options: runs share the package cache but each gets
// its own output directory.
type Runner struct {
	Fetcher    nuget.Fetcher
	Discoverer analyzer.Discoverer
	Deriver    rules.Deriver
	Packager   plugin.Packager
	Roots      *workspace.Roots
	Logger     *log.Logger

	// MetadataCache backs the feed client's version lookups when the runner
	// constructs its own fetcher. Ignored when Fetcher is set.
	MetadataCache *httputil.Cache

	rootsOnce sync.Once
	rootsErr  error
}

// RunnerOptions configures a Runner. Nil collaborators get defaults.
type RunnerOptions struct {
	Fetcher       nuget.Fetcher
	Discoverer    analyzer.Discoverer
	Deriver       rules.Deriver
	Packager      plugin.Packager
	Roots         *workspace.Roots
	MetadataCache *httputil.Cache
	Logger        *log.Logger
}

// NewRunner creates a runner. Collaborators left nil fall back to the
// default implementations: the convention scanner, the default deriver, the
// jar packager, and a feed client built per run from the run's source.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Discoverer == nil {
		opts.Discoverer = analyzer.NewScanner(opts.Logger)
	}
	if opts.Deriver == nil {
		opts.Deriver = rules.NewDeriver(opts.Logger)
	}
	if opts.Packager == nil {
		opts.Packager = plugin.NewJarPackager(opts.Logger)
	}
	return &Runner{
		Fetcher:       opts.Fetcher,
		Discoverer:    opts.Discoverer,
		Deriver:       opts.Deriver,
		Packager:      opts.Packager,
		Roots:         opts.Roots,
		MetadataCache: opts.MetadataCache,
		Logger:        opts.Logger,
	}
}

// Execute runs the complete acquire → discover → derive → package pipeline.
//
// The returned error covers invalid input and workspace failures only. Once
// the run reaches the feed, problems degrade the result instead: a missing
// package yields OutcomeNotFound, a package without analyzers yields
// OutcomeNoAnalyzers, and a packaging failure yields OutcomeRulesWritten.
// Callers decide how hard to treat a degraded outcome.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	roots, err := r.workspaceRoots()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	version := opts.SemVersion()

	// Stage 1: Acquire
	fetchStart := time.Now()
	observability.Pipeline().OnFetchStart(ctx, opts.PackageID, version.String())
	pkg, err := r.fetcher(opts).Fetch(ctx, opts.PackageID, version, roots.Cache)
	result.Stats.FetchTime = time.Since(fetchStart)
	observability.Pipeline().OnFetchComplete(ctx, opts.PackageID, version.String(), result.Stats.FetchTime, err)
	if err != nil {
		if errors.Is(err, nuget.ErrNotFound) {
			opts.Logger.Warn("package not found", "package", opts.PackageID, "version", version)
			result.Outcome = OutcomeNotFound
			return result, nil
		}
		return nil, fmt.Errorf("fetch %s %s: %w", opts.PackageID, version, err)
	}
	result.Package = pkg

	opts.Logger.Info("materialized package",
		"package", pkg.ID,
		"version", pkg.Version,
		"duration", result.Stats.FetchTime)

	outputDir, err := roots.NewOutputDir()
	if err != nil {
		return nil, err
	}

	// Stage 2: Discover
	discoverStart := time.Now()
	observability.Pipeline().OnDiscoverStart(ctx, pkg.ID)
	components, err := r.Discoverer.Discover(ctx, pkg.Dir, roots.Cache)
	result.Stats.DiscoverTime = time.Since(discoverStart)
	result.Stats.ComponentCount = len(components)
	observability.Pipeline().OnDiscoverComplete(ctx, pkg.ID, len(components), result.Stats.DiscoverTime, err)
	if err != nil {
		opts.Logger.Error("analyzer discovery failed", "package", pkg.ID, "err", err)
		result.Outcome = OutcomeNoAnalyzers
		return result, nil
	}
	if len(components) == 0 {
		opts.Logger.Warn("package contains no analyzer components", "package", pkg.ID)
		result.Outcome = OutcomeNoAnalyzers
		return result, nil
	}

	opts.Logger.Info("discovered analyzers",
		"components", len(components),
		"duration", result.Stats.DiscoverTime)

	// Stage 3: Derive
	deriveStart := time.Now()
	observability.Pipeline().OnDeriveStart(ctx, pkg.ID, len(components))
	catalog, err := r.Deriver.Derive(ctx, components)
	result.Stats.DeriveTime = time.Since(deriveStart)
	ruleCount := 0
	if catalog != nil {
		ruleCount = catalog.Count()
	}
	observability.Pipeline().OnDeriveComplete(ctx, pkg.ID, ruleCount, result.Stats.DeriveTime, err)
	if err != nil {
		opts.Logger.Error("rule derivation failed", "package", pkg.ID, "err", err)
		result.Outcome = OutcomeNoAnalyzers
		return result, nil
	}
	if catalog == nil {
		opts.Logger.Warn("rule derivation produced no catalog", "package", pkg.ID)
		result.Outcome = OutcomeNoAnalyzers
		return result, nil
	}
	result.RuleCount = catalog.Count()
	if result.RuleCount == 0 {
		// Analyzers with no extractable diagnostics still produce a plugin,
		// just one with an empty rule set.
		opts.Logger.Warn("no rules derived from analyzers", "package", pkg.ID)
	}

	rulesPath, err := rules.Save(catalog, outputDir)
	if err != nil {
		return nil, fmt.Errorf("write rules document: %w", err)
	}
	result.RulesPath = rulesPath
	result.Outcome = OutcomeRulesWritten

	opts.Logger.Info("derived rules",
		"rules", result.RuleCount,
		"path", rulesPath,
		"duration", result.Stats.DeriveTime)

	// Stage 4: Package
	packageStart := time.Now()
	observability.Pipeline().OnPackageStart(ctx, pkg.ID, version.String())
	manifest := plugin.BuildManifest(pkg)
	artifact, err := r.Packager.Package(ctx, manifest, catalog, opts.ArtifactDir)
	result.Stats.PackageTime = time.Since(packageStart)
	observability.Pipeline().OnPackageComplete(ctx, pkg.ID, version.String(), artifact, result.Stats.PackageTime, err)
	if err != nil {
		opts.Logger.Error("packaging failed", "package", pkg.ID, "err", err)
		return result, nil
	}
	result.ArtifactPath = artifact
	result.Outcome = OutcomePackaged

	opts.Logger.Info("packaged plugin",
		"artifact", artifact,
		"duration", result.Stats.PackageTime)

	return result, nil
}

// fetcher returns the configured Fetcher or builds a feed client from the
// run's options.
func (r *Runner) fetcher(opts Options) nuget.Fetcher {
	if r.Fetcher != nil {
		return r.Fetcher
	}
	return nuget.NewClient(nuget.ClientOptions{
		Source:  opts.Source,
		Cache:   r.MetadataCache,
		Logger:  opts.Logger,
		Refresh: opts.Refresh,
	})
}

// workspaceRoots returns the configured roots or allocates the default tree
// under the system temp directory. The lazy allocation happens at most once,
// so concurrent Execute calls share a single workspace.
func (r *Runner) workspaceRoots() (*workspace.Roots, error) {
	r.rootsOnce.Do(func() {
		if r.Roots != nil {
			return
		}
		r.Roots, r.rootsErr = workspace.New(toolName)
	})
	return r.Roots, r.rootsErr
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
