// Package nuget implements the package acquirer against NuGet v3 feeds.
//
// The client resolves a package identifier and semantic version against a
// flat-container feed, downloads the .nupkg archive, and materializes its
// contents (plus the transitive dependency closure declared in the nuspec)
// into a shared cache directory. Feed metadata responses are cached between
// runs; package contents already present in the cache are reused without a
// network round trip.
//
// Not-found is signaled with [ErrNotFound] rather than a nil package, so
// callers can distinguish "nothing to do" from transport failures:
//
//	pkg, err := client.Fetch(ctx, "Sample.Analyzers", version, cacheDir)
//	if errors.Is(err, nuget.ErrNotFound) {
//	    // package or version absent from the feed
//	}
package nuget

import (
	"context"
	"errors"
	"strings"

	"github.com/blang/semver"
)

// DefaultSourceURL is the default remote package feed.
// Override per invocation via ClientOptions.Source or the config file.
const DefaultSourceURL = "https://api.nuget.org/v3-flatcontainer"

var (
	// ErrNotFound is returned when a package or version doesn't exist in the feed.
	ErrNotFound = errors.New("package not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// Package is a materialized package: metadata plus the local directory
// holding the extracted archive contents. Display metadata fields use
// pointers so "not supplied" stays distinct from "empty".
type Package struct {
	ID      string         // Package identifier as declared in the nuspec
	Version semver.Version // Resolved version
	Dir     string         // Local directory with the extracted package

	Title       *string  // Display title (nil if absent)
	Description *string  // Short description (nil if absent)
	Authors     []string // Author list (nil if absent)
	Owners      []string // Owner list (nil if absent)
	ProjectURL  *string  // Project homepage URL (nil if absent)

	Dependencies []Dependency // Direct dependencies declared in the nuspec
}

// Dependency is one entry of a package's declared dependency list.
type Dependency struct {
	ID           string // Dependency package identifier
	VersionRange string // Raw version range string from the nuspec
}

// Fetcher retrieves and materializes packages from a remote feed.
type Fetcher interface {
	// Fetch resolves id+version, materializes the package and its dependency
	// closure under cacheDir, and returns its metadata. Returns an error
	// wrapping ErrNotFound if the package or version is absent.
	Fetch(ctx context.Context, id string, version semver.Version, cacheDir string) (*Package, error)
}

// NormalizeID converts a package identifier to the lowercase form used in
// flat-container URLs and cache paths.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
