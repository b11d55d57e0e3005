package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/blang/semver"

	"github.com/rulesmith/rulesmith/pkg/analyzer"
	"github.com/rulesmith/rulesmith/pkg/nuget"
	"github.com/rulesmith/rulesmith/pkg/plugin"
	"github.com/rulesmith/rulesmith/pkg/rules"
	"github.com/rulesmith/rulesmith/pkg/workspace"
)

// fakeFetcher serves packages from an in-memory map keyed by "id version".
type fakeFetcher struct {
	packages map[string]*nuget.Package
	err      error
	calls    int
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string, version semver.Version, cacheDir string) (*nuget.Package, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	pkg, ok := f.packages[id+" "+version.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", nuget.ErrNotFound, id, version)
	}
	return pkg, nil
}

// fakeDiscoverer returns a fixed component set.
type fakeDiscoverer struct {
	components []analyzer.Component
	err        error
}

func (f *fakeDiscoverer) Discover(ctx context.Context, packageDir, cacheDir string) ([]analyzer.Component, error) {
	return f.components, f.err
}

// failingPackager always fails.
type failingPackager struct{}

func (failingPackager) Package(ctx context.Context, m *plugin.Manifest, c *rules.Catalog, dir string) (string, error) {
	return "", errors.New("disk full")
}

func samplePackage(t *testing.T) *nuget.Package {
	t.Helper()
	return &nuget.Package{
		ID:      "Sample.Analyzers",
		Version: semver.MustParse("1.2.0"),
		Dir:     t.TempDir(),
	}
}

func sampleComponents() []analyzer.Component {
	return []analyzer.Component{
		{Assembly: "Sample.Analyzers", DiagnosticIDs: []string{"SA1000"}},
		{Assembly: "Sample.Style", DiagnosticIDs: []string{"SA1100"}},
		{Assembly: "Sample.Naming", DiagnosticIDs: []string{"SA1200"}},
	}
}

func testRunner(t *testing.T, fetcher nuget.Fetcher, discoverer analyzer.Discoverer) *Runner {
	t.Helper()
	roots, err := workspace.NewAt(t.TempDir(), "rulesmith")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	return NewRunner(RunnerOptions{
		Fetcher:    fetcher,
		Discoverer: discoverer,
		Roots:      roots,
	})
}

func TestExecuteFullPipeline(t *testing.T) {
	pkg := samplePackage(t)
	fetcher := &fakeFetcher{packages: map[string]*nuget.Package{"Sample.Analyzers 1.2.0": pkg}}
	runner := testRunner(t, fetcher, &fakeDiscoverer{components: sampleComponents()})

	artifactDir := t.TempDir()
	result, err := runner.Execute(context.Background(), Options{
		PackageID:   "Sample.Analyzers",
		Version:     "1.2.0",
		ArtifactDir: artifactDir,
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome != OutcomePackaged {
		t.Fatalf("Outcome = %s, want packaged", result.Outcome)
	}
	if !result.Found() {
		t.Error("Found() = false for an existing package")
	}
	if result.Stats.ComponentCount != 3 {
		t.Errorf("ComponentCount = %d, want 3", result.Stats.ComponentCount)
	}
	if result.RuleCount != 3 {
		t.Errorf("RuleCount = %d, want 3", result.RuleCount)
	}

	want := filepath.Join(artifactDir, "Sample.Analyzers-plugin.1.2.0.jar")
	if result.ArtifactPath != want {
		t.Errorf("ArtifactPath = %q, want %q", result.ArtifactPath, want)
	}
	if _, err := os.Stat(result.ArtifactPath); err != nil {
		t.Errorf("artifact missing on disk: %v", err)
	}
	if _, err := os.Stat(result.RulesPath); err != nil {
		t.Errorf("rules document missing on disk: %v", err)
	}
}

func TestExecutePackageNotFound(t *testing.T) {
	runner := testRunner(t, &fakeFetcher{}, &fakeDiscoverer{})

	result, err := runner.Execute(context.Background(), Options{
		PackageID: "No.Such.Package",
		Version:   "1.0.0",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.Found() {
		t.Error("Found() = true for a missing package")
	}
	if result.Outcome != OutcomeNotFound {
		t.Errorf("Outcome = %s, want not-found", result.Outcome)
	}
}

func TestExecuteNoAnalyzers(t *testing.T) {
	pkg := samplePackage(t)
	fetcher := &fakeFetcher{packages: map[string]*nuget.Package{"Sample.Analyzers 1.2.0": pkg}}
	runner := testRunner(t, fetcher, &fakeDiscoverer{components: nil})

	result, err := runner.Execute(context.Background(), Options{
		PackageID: "Sample.Analyzers",
		Version:   "1.2.0",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.Outcome != OutcomeNoAnalyzers {
		t.Errorf("Outcome = %s, want no-analyzers", result.Outcome)
	}
	// The package exists; only analyzers are missing.
	if !result.Found() {
		t.Error("Found() = false for an existing package without analyzers")
	}
	if result.ArtifactPath != "" {
		t.Errorf("ArtifactPath = %q, want empty", result.ArtifactPath)
	}
}

func TestExecuteEmptyCatalogStillPackages(t *testing.T) {
	pkg := samplePackage(t)
	fetcher := &fakeFetcher{packages: map[string]*nuget.Package{"Sample.Analyzers 1.2.0": pkg}}
	// One analyzer component, no extractable diagnostic ids.
	discoverer := &fakeDiscoverer{components: []analyzer.Component{
		{Assembly: "Sample.Analyzers", DiagnosticIDs: nil},
	}}
	runner := testRunner(t, fetcher, discoverer)

	result, err := runner.Execute(context.Background(), Options{
		PackageID:   "Sample.Analyzers",
		Version:     "1.2.0",
		ArtifactDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome != OutcomePackaged {
		t.Fatalf("Outcome = %s, want packaged", result.Outcome)
	}
	if result.RuleCount != 0 {
		t.Errorf("RuleCount = %d, want 0", result.RuleCount)
	}
	if _, err := os.Stat(result.RulesPath); err != nil {
		t.Errorf("rules document missing on disk: %v", err)
	}
	if _, err := os.Stat(result.ArtifactPath); err != nil {
		t.Errorf("artifact missing on disk: %v", err)
	}
}

func TestExecuteDiscoveryFailureDegrades(t *testing.T) {
	pkg := samplePackage(t)
	fetcher := &fakeFetcher{packages: map[string]*nuget.Package{"Sample.Analyzers 1.2.0": pkg}}
	runner := testRunner(t, fetcher, &fakeDiscoverer{err: errors.New("corrupt assembly")})

	result, err := runner.Execute(context.Background(), Options{
		PackageID: "Sample.Analyzers",
		Version:   "1.2.0",
	})
	if err != nil {
		t.Fatalf("Execute() should not fail on discovery errors, got %v", err)
	}
	if result.Outcome != OutcomeNoAnalyzers {
		t.Errorf("Outcome = %s, want no-analyzers", result.Outcome)
	}
}

func TestExecutePackagingFailureKeepsRules(t *testing.T) {
	pkg := samplePackage(t)
	fetcher := &fakeFetcher{packages: map[string]*nuget.Package{"Sample.Analyzers 1.2.0": pkg}}

	roots, err := workspace.NewAt(t.TempDir(), "rulesmith")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	runner := NewRunner(RunnerOptions{
		Fetcher:    fetcher,
		Discoverer: &fakeDiscoverer{components: sampleComponents()},
		Packager:   failingPackager{},
		Roots:      roots,
	})

	result, err := runner.Execute(context.Background(), Options{
		PackageID: "Sample.Analyzers",
		Version:   "1.2.0",
	})
	if err != nil {
		t.Fatalf("Execute() should not fail on packaging errors, got %v", err)
	}
	if result.Outcome != OutcomeRulesWritten {
		t.Errorf("Outcome = %s, want rules-written", result.Outcome)
	}
	if result.RulesPath == "" {
		t.Error("RulesPath should survive a packaging failure")
	}
	if _, err := os.Stat(result.RulesPath); err != nil {
		t.Errorf("rules document missing on disk: %v", err)
	}
}

func TestExecuteValidatesBeforeFetching(t *testing.T) {
	fetcher := &fakeFetcher{}
	runner := testRunner(t, fetcher, &fakeDiscoverer{})

	tests := []struct {
		name string
		opts Options
	}{
		{"blank package id", Options{PackageID: "   ", Version: "1.0.0"}},
		{"traversal in package id", Options{PackageID: "../etc", Version: "1.0.0"}},
		{"bad version", Options{PackageID: "Sample", Version: "not-a-version"}},
		{"bad source scheme", Options{PackageID: "Sample", Version: "1.0.0", Source: "ftp://feed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runner.Execute(context.Background(), tt.opts); err == nil {
				t.Error("Execute() should reject invalid options")
			}
		})
	}

	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times before validation passed", fetcher.calls)
	}
}

func TestExecuteConcurrentRunsGetDistinctOutputs(t *testing.T) {
	pkg := samplePackage(t)
	fetcher := &fakeFetcher{packages: map[string]*nuget.Package{"Sample.Analyzers 1.2.0": pkg}}
	runner := testRunner(t, fetcher, &fakeDiscoverer{components: sampleComponents()})

	first, err := runner.Execute(context.Background(), Options{
		PackageID: "Sample.Analyzers", Version: "1.2.0", ArtifactDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("first Execute() error: %v", err)
	}
	second, err := runner.Execute(context.Background(), Options{
		PackageID: "Sample.Analyzers", Version: "1.2.0", ArtifactDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}

	if first.RulesPath == second.RulesPath {
		t.Errorf("runs share a rules path: %q", first.RulesPath)
	}
}

func TestWorkspaceRootsAllocatedOnce(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	runner := NewRunner(RunnerOptions{})

	const goroutines = 8
	got := make([]*workspace.Roots, goroutines)
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = runner.workspaceRoots()
		}()
	}
	wg.Wait()

	for i := range goroutines {
		if errs[i] != nil {
			t.Fatalf("workspaceRoots() error: %v", errs[i])
		}
		if got[i] != got[0] {
			t.Fatalf("goroutines observed different roots: %p vs %p", got[i], got[0])
		}
	}
}

func TestOptionsValidateIdempotent(t *testing.T) {
	opts := Options{PackageID: "Sample", Version: "1.0.0"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Source == "" || opts.ArtifactDir != "." {
		t.Errorf("defaults not applied: source=%q artifactDir=%q", opts.Source, opts.ArtifactDir)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeNotFound, "not-found"},
		{OutcomeNoAnalyzers, "no-analyzers"},
		{OutcomeRulesWritten, "rules-written"},
		{OutcomePackaged, "packaged"},
		{Outcome(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}
