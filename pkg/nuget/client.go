package nuget

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/charmbracelet/log"

	"github.com/rulesmith/rulesmith/pkg/httputil"
	"github.com/rulesmith/rulesmith/pkg/observability"
)

const (
	httpTimeout = 30 * time.Second

	// DefaultMaxDepth bounds the transitive dependency closure. Analyzer
	// packages rarely nest deeper than two or three levels.
	DefaultMaxDepth = 5
)

// ClientOptions configures a feed client.
type ClientOptions struct {
	Source   string          // Feed URL (default: DefaultSourceURL)
	Cache    *httputil.Cache // Metadata cache (nil disables caching)
	Logger   *log.Logger     // Progress/warning output (nil: log.Default())
	Refresh  bool            // Bypass the metadata cache
	MaxDepth int             // Dependency closure depth (default: DefaultMaxDepth)
}

// Client fetches packages from a NuGet v3 flat-container feed.
// All methods are safe for concurrent use.
type Client struct {
	source   string
	http     *http.Client
	cache    *httputil.Cache
	refresh  bool
	maxDepth int
	log      *log.Logger
}

// NewClient creates a feed client. Zero-value options get defaults.
func NewClient(opts ClientOptions) *Client {
	if opts.Source == "" {
		opts.Source = DefaultSourceURL
	}
	if opts.Cache == nil {
		opts.Cache = httputil.NewCache(nil, 0)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Client{
		source:   strings.TrimSuffix(opts.Source, "/"),
		http:     &http.Client{Timeout: httpTimeout},
		cache:    opts.Cache.Namespace("versions:"),
		refresh:  opts.Refresh,
		maxDepth: opts.MaxDepth,
		log:      opts.Logger,
	}
}

// Fetch implements [Fetcher]. It materializes the package under cacheDir and
// then walks the declared dependency closure breadth-first, materializing
// each dependency beside it. A missing or broken dependency is logged and
// skipped; only the root package's absence is reported as ErrNotFound.
func (c *Client) Fetch(ctx context.Context, id string, version semver.Version, cacheDir string) (*Package, error) {
	pkg, err := c.fetchOne(ctx, id, version.String(), cacheDir)
	if err != nil {
		return nil, err
	}

	c.fetchClosure(ctx, pkg, cacheDir)
	return pkg, nil
}

// fetchOne resolves and materializes a single package version.
func (c *Client) fetchOne(ctx context.Context, id, version, cacheDir string) (*Package, error) {
	idLower := NormalizeID(id)
	dir := filepath.Join(cacheDir, idLower, version)

	// Cache reuse: a previously materialized package is identified by its
	// nuspec already sitting in the cache directory.
	if doc, err := c.readCachedNuspec(dir); err == nil {
		c.log.Debugf("reusing cached package %s %s", id, version)
		return buildPackage(doc, dir, version), nil
	}

	versions, err := c.versions(ctx, idLower)
	if err != nil {
		return nil, err
	}
	if !containsVersion(versions, version) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, id, version)
	}

	archiveURL := fmt.Sprintf("%s/%s/%s/%s.%s.nupkg", c.source, idLower, version, idLower, version)
	data, err := c.getBytes(ctx, archiveURL)
	if err != nil {
		return nil, fmt.Errorf("download %s %s: %w", id, version, err)
	}

	if err := extractArchive(data, dir); err != nil {
		return nil, fmt.Errorf("extract %s %s: %w", id, version, err)
	}

	doc, err := c.readCachedNuspec(dir)
	if err != nil {
		return nil, fmt.Errorf("read nuspec of %s %s: %w", id, version, err)
	}

	return buildPackage(doc, dir, version), nil
}

// fetchClosure materializes the transitive dependencies of pkg, breadth-first
// with a visited set and bounded depth. Failures here never fail the run:
// analyzers usually ship self-contained, and discovery treats the cache as an
// auxiliary resolution path only.
func (c *Client) fetchClosure(ctx context.Context, pkg *Package, cacheDir string) {
	type item struct {
		dep   Dependency
		depth int
	}

	visited := map[string]bool{NormalizeID(pkg.ID): true}
	queue := make([]item, 0, len(pkg.Dependencies))
	for _, d := range pkg.Dependencies {
		queue = append(queue, item{dep: d, depth: 1})
	}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		key := NormalizeID(it.dep.ID)
		if visited[key] || it.depth > c.maxDepth {
			continue
		}
		visited[key] = true

		version, err := c.resolveRange(ctx, key, it.dep.VersionRange)
		if err != nil {
			c.log.Warnf("skipping dependency %s %s: %v", it.dep.ID, it.dep.VersionRange, err)
			continue
		}

		dep, err := c.fetchOne(ctx, it.dep.ID, version, cacheDir)
		if err != nil {
			c.log.Warnf("skipping dependency %s %s: %v", it.dep.ID, version, err)
			continue
		}

		for _, d := range dep.Dependencies {
			queue = append(queue, item{dep: d, depth: it.depth + 1})
		}
	}
}

// resolveRange picks a concrete version for a dependency range. The minimum
// version named in the range is preferred (NuGet restore semantics); an
// unparsable or open range falls back to the highest version in the feed.
func (c *Client) resolveRange(ctx context.Context, idLower, versionRange string) (string, error) {
	if v, ok := rangeMinVersion(versionRange); ok {
		return v, nil
	}

	versions, err := c.versions(ctx, idLower)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, idLower)
	}
	return versions[len(versions)-1], nil
}

// versionIndex mirrors the flat-container version list document.
type versionIndex struct {
	Versions []string `json:"versions"`
}

// versions returns the published version list for a package, cached between
// runs unless the client was created with Refresh.
func (c *Client) versions(ctx context.Context, idLower string) ([]string, error) {
	var index versionIndex

	if !c.refresh {
		if ok, _ := c.cache.Get(ctx, idLower, &index); ok {
			return index.Versions, nil
		}
	}

	url := fmt.Sprintf("%s/%s/index.json", c.source, idLower)
	if err := c.getJSON(ctx, url, &index); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, idLower)
		}
		return nil, err
	}

	_ = c.cache.Set(ctx, idLower, &index)
	return index.Versions, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	data, err := c.getBytes(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// getBytes performs a GET with retry on transient failures.
func (c *Client) getBytes(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		observability.HTTP().OnRequest(ctx, http.MethodGet, req.URL.Host, req.URL.Path)
		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			observability.HTTP().OnError(ctx, http.MethodGet, req.URL.Host, req.URL.Path, err)
			return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
		}
		defer resp.Body.Close()
		observability.HTTP().OnResponse(ctx, http.MethodGet, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

		if err := checkStatus(resp.StatusCode); err != nil {
			return err
		}

		data, err = io.ReadAll(resp.Body)
		return err
	})
	return data, err
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// readCachedNuspec locates and parses the nuspec at the root of a
// materialized package directory.
func (c *Client) readCachedNuspec(dir string) (*nuspec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".nuspec") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		return parseNuspec(data)
	}
	return nil, fmt.Errorf("no nuspec in %s", dir)
}

// buildPackage maps a parsed nuspec onto the Package data model.
// The version requested from the feed wins over the nuspec's own version
// string when the latter doesn't parse; feeds normalize versions, nuspecs
// occasionally don't.
func buildPackage(doc *nuspec, dir, requested string) *Package {
	version, err := semver.ParseTolerant(doc.Metadata.Version)
	if err != nil {
		version, _ = semver.ParseTolerant(requested)
	}

	return &Package{
		ID:           doc.Metadata.ID,
		Version:      version,
		Dir:          dir,
		Title:        doc.Metadata.Title,
		Description:  doc.Metadata.Description,
		Authors:      splitList(doc.Metadata.Authors),
		Owners:       splitList(doc.Metadata.Owners),
		ProjectURL:   doc.Metadata.ProjectURL,
		Dependencies: doc.dependencies(),
	}
}

// containsVersion reports whether the feed's version list includes version.
// Comparison is case-insensitive to tolerate prerelease tag casing.
func containsVersion(versions []string, version string) bool {
	for _, v := range versions {
		if strings.EqualFold(v, version) {
			return true
		}
	}
	return false
}

// rangeMinVersion extracts the first concrete version named in a NuGet
// version range like "[1.2.0, 2.0.0)" or a bare "1.2.0". For lower-bounded
// ranges this is the minimum, matching restore semantics. Returns ok=false
// for fully open or empty ranges.
func rangeMinVersion(versionRange string) (string, bool) {
	trimmed := strings.Trim(strings.TrimSpace(versionRange), "[]()")
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := semver.ParseTolerant(part); err == nil {
			return v.String(), true
		}
	}
	return "", false
}

// extractArchive unpacks a .nupkg (zip) into dir, guarding against path
// traversal in archive entries.
func extractArchive(data []byte, dir string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, file := range reader.File {
		name := filepath.FromSlash(file.Name)
		if strings.Contains(name, "..") || filepath.IsAbs(name) {
			continue
		}

		target := filepath.Join(dir, name)
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := writeArchiveFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func writeArchiveFile(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Ensure Client implements Fetcher.
var _ Fetcher = (*Client)(nil)
