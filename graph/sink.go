// Package graph defines the mutation contract plugins write through and the
// host-side pieces around it: an in-memory graph, the record store merge step
// and layout arrangement.
package graph

import (
	"context"
	"errors"
)

// ElementType names the kind of element an attribute belongs to.
type ElementType string

const (
	ElementVertex      ElementType = "vertex"
	ElementTransaction ElementType = "transaction"
	ElementGraph       ElementType = "graph"
)

// ValueType is the data type of an attribute.
type ValueType string

const (
	ValueString   ValueType = "string"
	ValueInt      ValueType = "integer"
	ValueFloat    ValueType = "float"
	ValueBool     ValueType = "boolean"
	ValueDateTime ValueType = "datetime"
	ValueSemantic ValueType = "type"
	ValueObject   ValueType = "object"
)

// Attribute names shared by the host and plugins.
const (
	AttrIdentifier = "Identifier"
	AttrType       = "Type"
	AttrCountry    = "Geo.Country"
	AttrFlag       = "isGood"
	AttrSelected   = "selected"
	AttrDateTime   = "DateTime"
	AttrDecorators = "decorators"
)

// GraphElementID is the element id used for graph-level attribute values.
const GraphElementID = 0

// AttributeID is the handle returned by EnsureAttribute.
type AttributeID int

// Sentinel errors.
var (
	ErrVertexNotFound      = errors.New("vertex not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAttributeNotFound   = errors.New("attribute not found")
	ErrAttributeType       = errors.New("attribute already exists with a different type")
)

// Sink is the live graph that plugins mutate. Implementations assume a single
// writer for the duration of one plugin invocation.
type Sink interface {
	// AddVertex creates a vertex and returns its id.
	AddVertex(ctx context.Context) (int, error)

	// AddTransaction creates a transaction between two existing vertices.
	AddTransaction(ctx context.Context, source, destination int, directed bool) (int, error)

	// EnsureAttribute returns the attribute called name on element, creating
	// it when absent. Repeated calls return the same handle.
	EnsureAttribute(ctx context.Context, element ElementType, name string, valueType ValueType) (AttributeID, error)

	// SetValue writes value for one element of the attribute's element type.
	SetValue(ctx context.Context, attr AttributeID, elementID int, value any) error
}

// Completer is implemented by sinks that derive attributes once an element
// has been fully written, such as labels built from identifier and type.
type Completer interface {
	CompleteVertex(ctx context.Context, id int) error
	CompleteTransaction(ctx context.Context, id int) error
}

// Finder is implemented by sinks that can look up an existing vertex by
// identifier and type. Merge uses it to avoid duplicating vertices.
type Finder interface {
	FindVertex(ctx context.Context, identifier, typeName string) (int, bool, error)
}

// Decorators names the vertex attributes drawn at each corner of a vertex.
// It is stored on the graph element under AttrDecorators.
type Decorators struct {
	NorthWest string `json:"north_west,omitempty"`
	NorthEast string `json:"north_east,omitempty"`
	SouthEast string `json:"south_east,omitempty"`
	SouthWest string `json:"south_west,omitempty"`
}
