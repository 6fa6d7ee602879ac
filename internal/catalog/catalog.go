// Package catalog holds named factor formulas and compiles them once per run.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"FactorForge/internal/calculator"
	"FactorForge/internal/expr"
	"FactorForge/internal/model"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog is returned for malformed catalog content.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is an ordered set of factor definitions with unique names.
type Catalog struct {
	defs  []model.FactorDefinition
	index map[string]int
}

// New creates a catalog from defs, rejecting duplicates and empty entries.
func New(defs ...model.FactorDefinition) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if err := c.Add(d.Name, d.Expression); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends a definition. Names compare case-insensitively.
func (c *Catalog) Add(name, expression string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: factor name is empty", ErrInvalidCatalog)
	}
	if strings.TrimSpace(expression) == "" {
		return fmt.Errorf("%w: factor %q has an empty expression", ErrInvalidCatalog, name)
	}
	key := strings.ToLower(name)
	if _, dup := c.index[key]; dup {
		return fmt.Errorf("%w: duplicate factor %q", ErrInvalidCatalog, name)
	}
	c.index[key] = len(c.defs)
	c.defs = append(c.defs, model.FactorDefinition{Name: name, Expression: expression})
	return nil
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// Definitions returns the definitions in catalog order.
func (c *Catalog) Definitions() []model.FactorDefinition {
	out := make([]model.FactorDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Get looks a definition up by name.
func (c *Catalog) Get(name string) (model.FactorDefinition, bool) {
	i, ok := c.index[strings.ToLower(name)]
	if !ok {
		return model.FactorDefinition{}, false
	}
	return c.defs[i], true
}

// Names returns factor names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.defs))
	for i, d := range c.defs {
		out[i] = d.Name
	}
	return out
}

// Load reads a flat name-to-expression mapping from a JSON or YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a flat mapping, keeping the order of the document.
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidCatalog)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping at line %d", ErrInvalidCatalog, root.Line)
	}
	c := &Catalog{index: make(map[string]int, len(root.Content)/2)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: factor %q at line %d is not a string", ErrInvalidCatalog, k.Value, v.Line)
		}
		if err := c.Add(k.Value, v.Value); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Factor is a compiled definition.
type Factor struct {
	Name string
	Expr *expr.Expression
}

// Compile parses every definition and checks that each called operator
// exists in lib. All failures are reported together.
//
// An unknown operator fails the load here, before any instrument is
// fetched, rather than failing each instrument at evaluation time: no
// instrument could bind it. Unknown column names still fail per instrument,
// since columns differ between tables.
func (c *Catalog) Compile(lib *calculator.Library) ([]Factor, error) {
	factors := make([]Factor, 0, len(c.defs))
	var errs []error
	for _, d := range c.defs {
		x, err := expr.Compile(d.Expression)
		if err != nil {
			errs = append(errs, fmt.Errorf("factor %s: %w", d.Name, err))
			continue
		}
		for _, name := range x.Calls() {
			if _, ok := lib.Lookup(name); !ok {
				errs = append(errs, fmt.Errorf("factor %s: %w: operator %q", d.Name, expr.ErrUnboundName, name))
			}
		}
		factors = append(factors, Factor{Name: d.Name, Expr: x})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return factors, nil
}
