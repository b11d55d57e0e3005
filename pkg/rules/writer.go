package rules

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// Filename is the rules definition document name inside the artifact.
const Filename = "rules.xml"

// xmlRules mirrors the rules definition document schema.
type xmlRules struct {
	XMLName xml.Name  `xml:"rules"`
	Rules   []xmlRule `xml:"rule"`
}

type xmlRule struct {
	Key         string   `xml:"key"`
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Severity    string   `xml:"severity"`
	Type        string   `xml:"type"`
	InternalKey string   `xml:"internalKey"`
	Tags        []string `xml:"tag,omitempty"`
}

// Marshal renders the catalog as a rules definition document.
// Rules appear sorted by key for reproducible artifacts.
func Marshal(c *Catalog) ([]byte, error) {
	doc := xmlRules{}
	for _, r := range c.Rules() {
		doc.Rules = append(doc.Rules, xmlRule{
			Key:         r.Key,
			Name:        r.Name,
			Description: r.Description,
			Severity:    r.Severity,
			Type:        r.Type,
			InternalKey: r.InternalKey,
			Tags:        r.Tags,
		})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rules: %w", err)
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}

// Save writes the catalog's rules definition document into dir and returns
// the written path.
func Save(c *Catalog, dir string) (string, error) {
	data, err := Marshal(c)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, Filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", Filename, err)
	}
	return path, nil
}
