package plugin

import (
	"archive/zip"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rulesmith/rulesmith/pkg/rules"
)

func readJarEntry(t *testing.T, jar, name string) string {
	t.Helper()

	r, err := zip.OpenReader(jar)
	if err != nil {
		t.Fatalf("open jar: %v", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read entry %s: %v", name, err)
		}
		return string(data)
	}
	t.Fatalf("entry %s not found in %s", name, jar)
	return ""
}

func TestPackageProducesJar(t *testing.T) {
	m := &Manifest{Key: "Sample.Analyzers", Name: "Sample Analyzers", Version: "1.2.0"}
	catalog := rules.NewCatalog()
	catalog.Add(rules.Rule{Key: "SA1000", Name: "n", Severity: "MAJOR", Type: "CODE_SMELL", InternalKey: "SA1000"})

	dir := t.TempDir()
	path, err := NewJarPackager(nil).Package(context.Background(), m, catalog, dir)
	if err != nil {
		t.Fatalf("Package() error: %v", err)
	}

	want := filepath.Join(dir, "Sample.Analyzers-plugin.1.2.0.jar")
	if path != want {
		t.Errorf("artifact path = %q, want %q", path, want)
	}

	manifest := readJarEntry(t, path, "META-INF/MANIFEST.MF")
	if !strings.Contains(manifest, "Plugin-Key: Sample.Analyzers\r\n") {
		t.Errorf("manifest missing key header:\n%s", manifest)
	}
	if !strings.Contains(manifest, "Plugin-Version: 1.2.0\r\n") {
		t.Errorf("manifest missing version header:\n%s", manifest)
	}

	doc := readJarEntry(t, path, rules.Filename)
	if !strings.Contains(doc, "<key>SA1000</key>") {
		t.Errorf("rules document missing rule:\n%s", doc)
	}
}

func TestPackageCreatesArtifactDir(t *testing.T) {
	m := &Manifest{Key: "K", Name: "N", Version: "1.0.0"}
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := NewJarPackager(nil).Package(context.Background(), m, rules.NewCatalog(), dir)
	if err != nil {
		t.Fatalf("Package() error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("artifact dir = %q, want %q", filepath.Dir(path), dir)
	}
}

func TestArtifactName(t *testing.T) {
	if got := ArtifactName("Sample.Analyzers", "1.2.0"); got != "Sample.Analyzers-plugin.1.2.0.jar" {
		t.Errorf("ArtifactName() = %q", got)
	}
}

func TestPackageHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &Manifest{Key: "K", Name: "N", Version: "1.0.0"}
	if _, err := NewJarPackager(nil).Package(ctx, m, rules.NewCatalog(), t.TempDir()); err == nil {
		t.Error("Package() with cancelled context should fail")
	}
}
