package nuget

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/blang/semver"
)

// buildNupkg assembles an in-memory .nupkg with a nuspec and extra files.
func buildNupkg(t *testing.T, nuspec string, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create("package.nuspec")
	if err != nil {
		t.Fatalf("create nuspec entry: %v", err)
	}
	if _, err := f.Write([]byte(nuspec)); err != nil {
		t.Fatalf("write nuspec entry: %v", err)
	}

	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

func nuspecDoc(id, version, deps string) string {
	return fmt.Sprintf(`<package><metadata><id>%s</id><version>%s</version><authors>Alice</authors>%s</metadata></package>`,
		id, version, deps)
}

// feedServer serves a flat-container style feed from an in-memory map of
// package id (lowercase) to version to nupkg bytes.
func feedServer(t *testing.T, packages map[string]map[string][]byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		for id, versions := range packages {
			if r.URL.Path == "/"+id+"/index.json" {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"versions":[`)
				first := true
				for v := range versions {
					if !first {
						fmt.Fprint(w, ",")
					}
					fmt.Fprintf(w, "%q", v)
					first = false
				}
				fmt.Fprint(w, `]}`)
				return
			}
			for v, data := range versions {
				if r.URL.Path == fmt.Sprintf("/%s/%s/%s.%s.nupkg", id, v, id, v) {
					_, _ = w.Write(data)
					return
				}
			}
		}
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestFetchMaterializesPackage(t *testing.T) {
	deps := `<dependencies><group><dependency id="Shared.Core" version="2.0.0" /></group></dependencies>`
	feed := map[string]map[string][]byte{
		"sample.analyzers": {
			"1.2.0": buildNupkg(t, nuspecDoc("Sample.Analyzers", "1.2.0", deps), map[string]string{
				"analyzers/dotnet/cs/Sample.Analyzers.dll": "fake assembly",
			}),
		},
		"shared.core": {
			"2.0.0": buildNupkg(t, nuspecDoc("Shared.Core", "2.0.0", ""), nil),
		},
	}
	srv := feedServer(t, feed)
	defer srv.Close()

	cacheDir := t.TempDir()
	client := NewClient(ClientOptions{Source: srv.URL})

	pkg, err := client.Fetch(context.Background(), "Sample.Analyzers", semver.MustParse("1.2.0"), cacheDir)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if pkg.ID != "Sample.Analyzers" {
		t.Errorf("ID = %q", pkg.ID)
	}
	if pkg.Version.String() != "1.2.0" {
		t.Errorf("Version = %s", pkg.Version)
	}
	if pkg.Authors == nil || pkg.Authors[0] != "Alice" {
		t.Errorf("Authors = %v", pkg.Authors)
	}

	dll := filepath.Join(pkg.Dir, "analyzers", "dotnet", "cs", "Sample.Analyzers.dll")
	if _, err := os.Stat(dll); err != nil {
		t.Errorf("extracted analyzer assembly missing: %v", err)
	}

	// The dependency closure was materialized into the shared cache.
	depNuspec := filepath.Join(cacheDir, "shared.core", "2.0.0", "package.nuspec")
	if _, err := os.Stat(depNuspec); err != nil {
		t.Errorf("dependency should be materialized: %v", err)
	}
}

func TestFetchPackageNotFound(t *testing.T) {
	srv := feedServer(t, nil)
	defer srv.Close()

	client := NewClient(ClientOptions{Source: srv.URL})
	_, err := client.Fetch(context.Background(), "No.Such.Package", semver.MustParse("1.0.0"), t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func TestFetchVersionNotFound(t *testing.T) {
	feed := map[string]map[string][]byte{
		"sample.analyzers": {
			"1.0.0": buildNupkg(t, nuspecDoc("Sample.Analyzers", "1.0.0", ""), nil),
		},
	}
	srv := feedServer(t, feed)
	defer srv.Close()

	client := NewClient(ClientOptions{Source: srv.URL})
	_, err := client.Fetch(context.Background(), "Sample.Analyzers", semver.MustParse("9.9.9"), t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func TestFetchReusesCachedPackage(t *testing.T) {
	feed := map[string]map[string][]byte{
		"sample.analyzers": {
			"1.2.0": buildNupkg(t, nuspecDoc("Sample.Analyzers", "1.2.0", ""), nil),
		},
	}
	srv := feedServer(t, feed)

	cacheDir := t.TempDir()
	client := NewClient(ClientOptions{Source: srv.URL})
	ctx := context.Background()

	if _, err := client.Fetch(ctx, "Sample.Analyzers", semver.MustParse("1.2.0"), cacheDir); err != nil {
		t.Fatalf("first Fetch() error: %v", err)
	}

	// With the package materialized, a second fetch needs no feed at all.
	srv.Close()
	pkg, err := client.Fetch(ctx, "Sample.Analyzers", semver.MustParse("1.2.0"), cacheDir)
	if err != nil {
		t.Fatalf("second Fetch() error: %v", err)
	}
	if pkg.ID != "Sample.Analyzers" {
		t.Errorf("ID = %q", pkg.ID)
	}
}

func TestFetchSurvivesMissingDependency(t *testing.T) {
	deps := `<dependencies><dependency id="Gone.Package" version="1.0.0" /></dependencies>`
	feed := map[string]map[string][]byte{
		"sample.analyzers": {
			"1.2.0": buildNupkg(t, nuspecDoc("Sample.Analyzers", "1.2.0", deps), nil),
		},
	}
	srv := feedServer(t, feed)
	defer srv.Close()

	client := NewClient(ClientOptions{Source: srv.URL})
	pkg, err := client.Fetch(context.Background(), "Sample.Analyzers", semver.MustParse("1.2.0"), t.TempDir())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(pkg.Dependencies) != 1 {
		t.Errorf("Dependencies = %v", pkg.Dependencies)
	}
}

func TestExtractArchiveRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, _ := w.Create("../escape.txt")
	_, _ = f.Write([]byte("nope"))
	_ = w.Close()

	dir := t.TempDir()
	if err := extractArchive(buf.Bytes(), filepath.Join(dir, "pkg")); err != nil {
		t.Fatalf("extractArchive() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("traversal entry should not be written outside the target dir")
	}
}
