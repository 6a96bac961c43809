package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// Transaction is a stored edge.
type Transaction struct {
	ID          int  `json:"id"`
	Source      int  `json:"source"`
	Destination int  `json:"destination"`
	Directed    bool `json:"directed"`
}

// Attribute describes a registered attribute.
type Attribute struct {
	ID        AttributeID `json:"id"`
	Element   ElementType `json:"element"`
	Name      string      `json:"name"`
	ValueType ValueType   `json:"value_type"`
}

type attrKey struct {
	element ElementType
	name    string
}

// MemoryGraph is an in-memory Sink. Vertex and transaction ids are dense and
// assigned in creation order starting at zero.
type MemoryGraph struct {
	mu           sync.RWMutex
	vertices     int
	transactions []Transaction
	attrs        []Attribute
	attrIndex    map[attrKey]AttributeID
	values       map[AttributeID]map[int]any
	layouts      []string
	completed    map[ElementType]int
}

// NewMemoryGraph returns an empty graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		attrIndex: make(map[attrKey]AttributeID),
		values:    make(map[AttributeID]map[int]any),
		completed: make(map[ElementType]int),
	}
}

// AddVertex implements Sink.
func (g *MemoryGraph) AddVertex(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.vertices
	g.vertices++
	return id, nil
}

// AddTransaction implements Sink.
func (g *MemoryGraph) AddTransaction(ctx context.Context, source, destination int, directed bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, v := range []int{source, destination} {
		if v < 0 || v >= g.vertices {
			return 0, fmt.Errorf("%w: %d", ErrVertexNotFound, v)
		}
	}
	id := len(g.transactions)
	g.transactions = append(g.transactions, Transaction{ID: id, Source: source, Destination: destination, Directed: directed})
	return id, nil
}

// EnsureAttribute implements Sink.
func (g *MemoryGraph) EnsureAttribute(ctx context.Context, element ElementType, name string, valueType ValueType) (AttributeID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	key := attrKey{element: element, name: name}
	if id, ok := g.attrIndex[key]; ok {
		if existing := g.attrs[id].ValueType; existing != valueType {
			return 0, fmt.Errorf("%w: %s.%s is %s, not %s", ErrAttributeType, element, name, existing, valueType)
		}
		return id, nil
	}
	id := AttributeID(len(g.attrs))
	g.attrs = append(g.attrs, Attribute{ID: id, Element: element, Name: name, ValueType: valueType})
	g.attrIndex[key] = id
	g.values[id] = make(map[int]any)
	return id, nil
}

// SetValue implements Sink.
func (g *MemoryGraph) SetValue(ctx context.Context, attr AttributeID, elementID int, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if attr < 0 || int(attr) >= len(g.attrs) {
		return fmt.Errorf("%w: %d", ErrAttributeNotFound, attr)
	}
	switch g.attrs[attr].Element {
	case ElementVertex:
		if elementID < 0 || elementID >= g.vertices {
			return fmt.Errorf("%w: %d", ErrVertexNotFound, elementID)
		}
	case ElementTransaction:
		if elementID < 0 || elementID >= len(g.transactions) {
			return fmt.Errorf("%w: %d", ErrTransactionNotFound, elementID)
		}
	}
	g.values[attr][elementID] = value
	return nil
}

// CompleteVertex implements Completer by counting completions.
func (g *MemoryGraph) CompleteVertex(ctx context.Context, _ int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[ElementVertex]++
	return ctx.Err()
}

// CompleteTransaction implements Completer by counting completions.
func (g *MemoryGraph) CompleteTransaction(ctx context.Context, _ int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[ElementTransaction]++
	return ctx.Err()
}

// Completed returns how many elements of kind were completed.
func (g *MemoryGraph) Completed(element ElementType) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.completed[element]
}

// FindVertex implements Finder. An empty typeName matches any type.
func (g *MemoryGraph) FindVertex(ctx context.Context, identifier, typeName string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	idAttr, ok := g.attrIndex[attrKey{ElementVertex, AttrIdentifier}]
	if !ok {
		return 0, false, nil
	}
	typeAttr, hasType := g.attrIndex[attrKey{ElementVertex, AttrType}]
	for v := range g.vertices {
		val, set := g.values[idAttr][v]
		if !set || fmt.Sprint(val) != identifier {
			continue
		}
		if typeName != "" && hasType && fmt.Sprint(g.values[typeAttr][v]) != typeName {
			continue
		}
		return v, true, nil
	}
	return 0, false, nil
}

// Arrange implements Arranger by recording the layout.
func (g *MemoryGraph) Arrange(ctx context.Context, layout string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.layouts = append(g.layouts, layout)
	return nil
}

// Layouts returns the layouts applied so far.
func (g *MemoryGraph) Layouts() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.layouts)
}

// VertexCount returns the number of vertices.
func (g *MemoryGraph) VertexCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.vertices
}

// TransactionCount returns the number of transactions.
func (g *MemoryGraph) TransactionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.transactions)
}

// Transactions returns every transaction in creation order.
func (g *MemoryGraph) Transactions() []Transaction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.transactions)
}

// Attributes returns the attributes registered on element.
func (g *MemoryGraph) Attributes(element ElementType) []Attribute {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Attribute
	for _, a := range g.attrs {
		if a.Element == element {
			out = append(out, a)
		}
	}
	return out
}

// Value returns the value of attribute name for one element.
func (g *MemoryGraph) Value(element ElementType, name string, id int) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	attr, ok := g.attrIndex[attrKey{element, name}]
	if !ok {
		return nil, false
	}
	v, ok := g.values[attr][id]
	return v, ok
}

type snapshotElement struct {
	ID     int            `json:"id"`
	Source *int           `json:"source,omitempty"`
	Dest   *int           `json:"destination,omitempty"`
	Attrs  map[string]any `json:"attributes,omitempty"`
}

type snapshot struct {
	Graph        map[string]any    `json:"graph,omitempty"`
	Vertices     []snapshotElement `json:"vertices"`
	Transactions []snapshotElement `json:"transactions"`
}

func (g *MemoryGraph) attrsOf(element ElementType, id int) map[string]any {
	var out map[string]any
	for _, a := range g.attrs {
		if a.Element != element {
			continue
		}
		if v, ok := g.values[a.ID][id]; ok {
			if out == nil {
				out = make(map[string]any)
			}
			out[a.Name] = v
		}
	}
	return out
}

// MarshalJSON renders the graph with attribute values inlined per element.
func (g *MemoryGraph) MarshalJSON() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := snapshot{
		Graph:        g.attrsOf(ElementGraph, GraphElementID),
		Vertices:     make([]snapshotElement, 0, g.vertices),
		Transactions: make([]snapshotElement, 0, len(g.transactions)),
	}
	for v := range g.vertices {
		s.Vertices = append(s.Vertices, snapshotElement{ID: v, Attrs: g.attrsOf(ElementVertex, v)})
	}
	for _, tx := range g.transactions {
		src, dst := tx.Source, tx.Destination
		s.Transactions = append(s.Transactions, snapshotElement{
			ID:     tx.ID,
			Source: &src,
			Dest:   &dst,
			Attrs:  g.attrsOf(ElementTransaction, tx.ID),
		})
	}
	return json.Marshal(s)
}
