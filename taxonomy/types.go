package taxonomy

import "errors"

// Category separates vertex types from transaction types.
type Category string

const (
	// CategoryVertex is the category of node types.
	CategoryVertex Category = "vertex"

	// CategoryTransaction is the category of edge (transaction) types.
	CategoryTransaction Category = "transaction"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryVertex || c == CategoryTransaction
}

// Sentinel errors returned while building a catalog.
var (
	// ErrInvalidDefinition indicates a type definition is malformed.
	ErrInvalidDefinition = errors.New("invalid type definition")

	// ErrDuplicateType indicates two definitions share a name within a category.
	ErrDuplicateType = errors.New("duplicate type")

	// ErrUnknownSuper indicates a definition names a super type that is not registered.
	ErrUnknownSuper = errors.New("unknown super type")
)

// Definition is the serialisable description of a SemanticType.
type Definition struct {
	// Name is the display name and identity of the type within its category.
	Name string `yaml:"name" json:"name"`

	// Category is either "vertex" or "transaction".
	Category Category `yaml:"category,omitempty" json:"category,omitempty"`

	// Description is free text shown to users.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Super names the more general type this one refines.
	Super string `yaml:"super,omitempty" json:"super,omitempty"`

	// Priority breaks dominance ties between types of equal depth. Higher wins.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`

	// Pattern is a regular expression the whole text must match.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// Expr is a CEL boolean expression over the string variable `text`.
	Expr string `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// SemanticType is a registered type. Types are compared by identity; two
// lookups of the same name in one catalog return the same pointer. A
// catalog's types are shared by every caller, so callers must treat the
// exported fields as read-only. Build a new catalog to change a type.
type SemanticType struct {
	Name        string
	Category    Category
	Description string
	Priority    int

	// Incomplete marks a type built on the fly by Resolve for a name the
	// catalog does not know. Incomplete types never match text.
	Incomplete bool

	super    *SemanticType
	depth    int
	order    int
	matchers []matcher
}

// Super returns the more general type, or nil for a root type.
func (t *SemanticType) Super() *SemanticType {
	return t.super
}

// String returns the type name.
func (t *SemanticType) String() string {
	if t == nil {
		return ""
	}
	return t.Name
}

// IsSubtypeOf reports whether t refines other, directly or transitively.
// A type is not a subtype of itself.
func (t *SemanticType) IsSubtypeOf(other *SemanticType) bool {
	if t == nil || other == nil {
		return false
	}
	for s := t.super; s != nil; s = s.super {
		if s == other {
			return true
		}
	}
	return false
}

// accepts reports whether any recogniser of t accepts text.
func (t *SemanticType) accepts(text string) bool {
	if t.Incomplete {
		return false
	}
	for _, m := range t.matchers {
		if m.match(text) {
			return true
		}
	}
	return false
}
