package analyzer

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// analyzerMarker identifies an analyzer assembly: every diagnostic analyzer
// derives from this base type, and the type name is embedded verbatim in the
// assembly's metadata tables.
const analyzerMarker = "DiagnosticAnalyzer"

// diagnosticIDPattern matches diagnostic identifiers as they appear in
// assembly string heaps: a short uppercase prefix followed by a number
// (CA1001, SA1600, RS0016, S125).
var diagnosticIDPattern = regexp.MustCompile(`\b[A-Z]{1,5}[0-9]{3,5}\b`)

// Scanner is the default convention-based Discoverer.
//
// It walks the package's analyzers/ tree (the packaging convention for
// analyzer assemblies), identifies assemblies carrying the analyzer base
// type marker, and extracts declared diagnostic identifiers from the
// assembly's embedded strings. Assemblies are never loaded or executed.
type Scanner struct {
	log *log.Logger
}

// NewScanner creates a Scanner. A nil logger falls back to log.Default().
func NewScanner(logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{log: logger}
}

// Discover implements [Discoverer].
func (s *Scanner) Discover(ctx context.Context, packageDir, cacheDir string) ([]Component, error) {
	candidates, err := s.findCandidates(packageDir)
	if err != nil {
		return nil, err
	}

	// The default scanner reads only bundled assemblies; the cache remains
	// available to discoverers that resolve satellite assemblies.
	s.log.Debugf("scanning %d candidate assemblies (cache: %s)", len(candidates), cacheDir)

	var components []Component
	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		component, ok, err := s.inspect(path)
		if err != nil {
			s.log.Warnf("skipping unreadable assembly %s: %v", path, err)
			continue
		}
		if !ok {
			s.log.Debugf("not an analyzer assembly: %s", path)
			continue
		}
		components = append(components, component)
	}

	return components, nil
}

// findCandidates collects assembly paths under the package's analyzers/
// tree. Packages without that tree yield no candidates.
func (s *Scanner) findCandidates(packageDir string) ([]string, error) {
	var candidates []string

	err := filepath.WalkDir(packageDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".dll") {
			return nil
		}

		rel, err := filepath.Rel(packageDir, path)
		if err != nil {
			return err
		}
		if underAnalyzersDir(rel) {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(candidates)
	return candidates, nil
}

// inspect reads an assembly and reports whether it is an analyzer component.
func (s *Scanner) inspect(path string) (Component, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Component{}, false, err
	}

	if !bytes.Contains(data, []byte(analyzerMarker)) {
		return Component{}, false, nil
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Component{
		Assembly:      name,
		Path:          path,
		DiagnosticIDs: extractDiagnosticIDs(data),
	}, true, nil
}

// underAnalyzersDir reports whether a package-relative path sits inside an
// analyzers/ directory at any level.
func underAnalyzersDir(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.EqualFold(part, "analyzers") {
			return true
		}
	}
	return false
}

// extractDiagnosticIDs scans assembly bytes for diagnostic identifiers.
// Assemblies store strings both as UTF-8 (metadata heap) and UTF-16LE
// (user-string heap); both encodings are scanned. Results are deduplicated
// and sorted for deterministic catalogs.
func extractDiagnosticIDs(data []byte) []string {
	seen := make(map[string]bool)

	for _, id := range diagnosticIDPattern.FindAllString(string(data), -1) {
		seen[id] = true
	}
	for _, id := range diagnosticIDPattern.FindAllString(decodeUTF16LE(data), -1) {
		seen[id] = true
	}

	if len(seen) == 0 {
		return nil
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// decodeUTF16LE extracts ASCII-range characters from UTF-16LE encoded
// regions, leaving other bytes as separators.
func decodeUTF16LE(data []byte) string {
	var b strings.Builder
	for i := 0; i+1 < len(data); i += 2 {
		if data[i+1] == 0 && data[i] >= 0x20 && data[i] < 0x7f {
			b.WriteByte(data[i])
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Ensure Scanner implements Discoverer.
var _ Discoverer = (*Scanner)(nil)
