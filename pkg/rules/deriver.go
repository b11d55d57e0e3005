package rules

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/rulesmith/rulesmith/pkg/analyzer"
)

// Deriver turns discovered analyzer components into a rule catalog.
type Deriver interface {
	Derive(ctx context.Context, components []analyzer.Component) (*Catalog, error)
}

// DefaultDeriver maps each diagnostic identifier declared by a component to
// one rule. Identifiers declared by multiple components collapse to a single
// rule; the first declaring component wins.
type DefaultDeriver struct {
	log *log.Logger
}

// NewDeriver creates a DefaultDeriver. A nil logger falls back to
// log.Default().
func NewDeriver(logger *log.Logger) *DefaultDeriver {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultDeriver{log: logger}
}

// Derive implements [Deriver].
func (d *DefaultDeriver) Derive(ctx context.Context, components []analyzer.Component) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	catalog := NewCatalog()
	for _, component := range components {
		if len(component.DiagnosticIDs) == 0 {
			d.log.Debugf("component %s declares no diagnostics", component.Assembly)
			continue
		}
		for _, id := range component.DiagnosticIDs {
			if _, exists := catalog.Get(id); exists {
				continue
			}
			catalog.Add(Rule{
				Key:         id,
				Name:        fmt.Sprintf("%s (%s)", id, component.Assembly),
				Description: fmt.Sprintf("Diagnostic %s reported by %s.", id, component.Assembly),
				Severity:    DefaultSeverity,
				Type:        DefaultType,
				InternalKey: id,
			})
		}
	}

	return catalog, nil
}

// Ensure DefaultDeriver implements Deriver.
var _ Deriver = (*DefaultDeriver)(nil)
