package taxonomy

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Catalog is an immutable registry of semantic types.
//
// The zero value is an empty catalog. Use NewCatalog to build one.
type Catalog struct {
	types  map[Category][]*SemanticType
	byName map[Category]map[string]*SemanticType
}

// NewCatalog builds a catalog from definitions. Registration order is the
// order of defs and is the final dominance tie-breaker. Super references may
// point forward to types defined later in defs.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		types:  make(map[Category][]*SemanticType),
		byName: make(map[Category]map[string]*SemanticType),
	}

	supers := make(map[*SemanticType]string, len(defs))
	for i, def := range defs {
		t, err := buildType(def, i)
		if err != nil {
			return nil, err
		}
		if c.byName[t.Category] == nil {
			c.byName[t.Category] = make(map[string]*SemanticType)
		}
		key := strings.ToLower(t.Name)
		if _, exists := c.byName[t.Category][key]; exists {
			return nil, fmt.Errorf("%w: %s %q", ErrDuplicateType, t.Category, t.Name)
		}
		c.byName[t.Category][key] = t
		c.types[t.Category] = append(c.types[t.Category], t)
		if def.Super != "" {
			supers[t] = def.Super
		}
	}

	for t, name := range supers {
		s, ok := c.byName[t.Category][strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q refines %q", ErrUnknownSuper, t.Name, name)
		}
		t.super = s
	}

	for _, list := range c.types {
		for _, t := range list {
			depth, err := depthOf(t)
			if err != nil {
				return nil, err
			}
			t.depth = depth
		}
	}

	return c, nil
}

func buildType(def Definition, order int) (*SemanticType, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required (definition %d)", ErrInvalidDefinition, order)
	}
	if !def.Category.Valid() {
		return nil, fmt.Errorf("%w: %q has unknown category %q", ErrInvalidDefinition, name, def.Category)
	}

	t := &SemanticType{
		Name:        name,
		Category:    def.Category,
		Description: def.Description,
		Priority:    def.Priority,
		order:       order,
		matchers:    []matcher{nameMatcher(name)},
	}

	if def.Pattern != "" {
		m, err := newPatternMatcher(def.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidDefinition, name, err)
		}
		t.matchers = append(t.matchers, m)
	}
	if def.Expr != "" {
		m, err := newExprMatcher(def.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidDefinition, name, err)
		}
		t.matchers = append(t.matchers, m)
	}

	return t, nil
}

// depthOf counts ancestors and rejects cycles.
func depthOf(t *SemanticType) (int, error) {
	depth := 0
	seen := map[*SemanticType]bool{t: true}
	for s := t.super; s != nil; s = s.super {
		if seen[s] {
			return 0, fmt.Errorf("%w: cycle in super chain of %q", ErrInvalidDefinition, t.Name)
		}
		seen[s] = true
		depth++
	}
	return depth, nil
}

// Compare is the dominance comparator. It returns a negative number when a is
// more specific than b, positive when b is more specific, and zero only when
// a and b are the same type.
func Compare(a, b *SemanticType) int {
	if a == b {
		return 0
	}
	if c := cmp.Compare(b.depth, a.depth); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.order, b.order)
}

// Match returns every type in category whose recognisers accept text, ordered
// from most to least specific. An unknown category yields no types.
func (c *Catalog) Match(category Category, text string) []*SemanticType {
	if c == nil {
		return nil
	}
	var matches []*SemanticType
	for _, t := range c.types[category] {
		if t.accepts(text) {
			matches = append(matches, t)
		}
	}
	slices.SortFunc(matches, Compare)
	return matches
}

// BestMatch returns the most specific type accepting text.
func (c *Catalog) BestMatch(category Category, text string) (*SemanticType, bool) {
	matches := c.Match(category, text)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0], true
}

// Lookup returns the registered type with the given name, ignoring case.
func (c *Catalog) Lookup(category Category, name string) (*SemanticType, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.byName[category][strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Resolve returns the registered type called name, or a new incomplete type
// carrying that name when the catalog does not know it. Incomplete types are
// not added to the catalog.
func (c *Catalog) Resolve(category Category, name string) *SemanticType {
	if t, ok := c.Lookup(category, name); ok {
		return t
	}
	return &SemanticType{
		Name:       strings.TrimSpace(name),
		Category:   category,
		Incomplete: true,
		order:      -1,
	}
}

// Types returns the types of category in registration order.
func (c *Catalog) Types(category Category) []*SemanticType {
	if c == nil {
		return nil
	}
	return slices.Clone(c.types[category])
}

// Names returns the sorted type names of category.
func (c *Catalog) Names(category Category) []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.types[category]))
	for _, t := range c.types[category] {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered types across both categories.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.types[CategoryVertex]) + len(c.types[CategoryTransaction])
}
