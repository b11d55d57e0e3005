package plugin

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rulesmith/rulesmith/pkg/rules"
)

const manifestPath = "META-INF/MANIFEST.MF"

// JarPackager writes the plugin artifact as a jar containing the manifest
// and the rules definition document.
type JarPackager struct {
	log *log.Logger
}

// NewJarPackager creates a JarPackager. A nil logger falls back to
// log.Default().
func NewJarPackager(logger *log.Logger) *JarPackager {
	if logger == nil {
		logger = log.Default()
	}
	return &JarPackager{log: logger}
}

// ArtifactName returns the artifact file name for a plugin key and version.
func ArtifactName(key, version string) string {
	return fmt.Sprintf("%s-plugin.%s.jar", key, version)
}

// Package implements [Packager].
func (p *JarPackager) Package(ctx context.Context, manifest *Manifest, catalog *rules.Catalog, artifactDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	target := filepath.Join(artifactDir, ArtifactName(manifest.Key, manifest.Version))
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)

	if err := writeEntry(w, manifestPath, renderManifest(manifest)); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	doc, err := rules.Marshal(catalog)
	if err != nil {
		return "", err
	}
	if err := writeEntry(w, rules.Filename, doc); err != nil {
		return "", fmt.Errorf("write rules document: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize artifact: %w", err)
	}

	p.log.Debugf("packaged %s (%d rules)", target, catalog.Count())
	return target, nil
}

// renderManifest serializes the manifest headers in jar manifest format.
func renderManifest(m *Manifest) []byte {
	var b strings.Builder
	b.WriteString("Manifest-Version: 1.0\r\n")
	for _, e := range m.Entries() {
		b.WriteString(e.Key)
		b.WriteString(": ")
		b.WriteString(e.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

func writeEntry(w *zip.Writer, name string, data []byte) error {
	f, err := w.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// Ensure JarPackager implements Packager.
var _ Packager = (*JarPackager)(nil)
