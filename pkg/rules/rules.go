// Package rules derives a platform rule catalog from discovered analyzer
// components and renders it as a rules definition document.
package rules

import "sort"

// Default classification for derived rules. The component metadata carries
// no platform taxonomy, so every rule starts here and can be recategorized
// on the platform after import.
const (
	DefaultSeverity = "MAJOR"
	DefaultType     = "CODE_SMELL"
)

// Rule is a single platform rule definition.
type Rule struct {
	Key         string   // Platform rule key (the diagnostic identifier)
	Name        string   // Display name
	Description string   // Long-form description (may equal the name)
	Severity    string   // Platform severity (BLOCKER..INFO)
	Type        string   // Platform rule type (BUG, VULNERABILITY, CODE_SMELL)
	InternalKey string   // Original diagnostic identifier
	Tags        []string // Optional tags
}

// Catalog is an ordered set of rules keyed by rule key.
type Catalog struct {
	rules []Rule
	index map[string]int
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Add inserts a rule, replacing any existing rule with the same key.
func (c *Catalog) Add(r Rule) {
	if i, ok := c.index[r.Key]; ok {
		c.rules[i] = r
		return
	}
	c.index[r.Key] = len(c.rules)
	c.rules = append(c.rules, r)
}

// Get returns the rule with the given key.
func (c *Catalog) Get(key string) (Rule, bool) {
	i, ok := c.index[key]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// Count returns the number of rules in the catalog.
func (c *Catalog) Count() int {
	return len(c.rules)
}

// Rules returns the rules sorted by key.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
