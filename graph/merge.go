package graph

import (
	"context"
	"fmt"
	"math"

	"github.com/zero-day-ai/graphkit/recordstore"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

// AttrDirected is the transaction key Merge reads to decide edge direction.
// It is not stored as an attribute. Transactions are directed by default.
const AttrDirected = "Directed"

// MergeResult summarises a Merge call.
type MergeResult struct {
	Records           int `json:"records"`
	VerticesAdded     int `json:"vertices_added"`
	VerticesReused    int `json:"vertices_reused"`
	TransactionsAdded int `json:"transactions_added"`
}

// Merge applies every record of store to sink. For each role present in a
// record it reuses the vertex named by "[id]", else one found by identifier
// and type when sink is a Finder, else a new vertex. A transaction is added
// when both endpoints are present. The cursor of store is reset first and
// left exhausted.
func Merge(ctx context.Context, store *recordstore.Store, sink Sink) (MergeResult, error) {
	m := merger{sink: sink, attrs: make(map[attrKey]AttributeID)}
	m.finder, _ = sink.(Finder)
	m.completer, _ = sink.(Completer)

	var res MergeResult
	store.Reset()
	for store.Next() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := store.Current()
		if err != nil {
			return res, err
		}
		if err := m.mergeRecord(ctx, rec, &res); err != nil {
			return res, fmt.Errorf("merge record %d: %w", res.Records, err)
		}
		res.Records++
	}
	return res, nil
}

type merger struct {
	sink      Sink
	finder    Finder
	completer Completer
	attrs     map[attrKey]AttributeID
}

func (m *merger) mergeRecord(ctx context.Context, rec recordstore.Record, res *MergeResult) error {
	parts := map[recordstore.Role]map[string]any{}
	for key, value := range rec {
		role, attr, ok := recordstore.SplitKey(key)
		if !ok || value == nil {
			continue
		}
		if parts[role] == nil {
			parts[role] = make(map[string]any)
		}
		parts[role][attr] = value
	}

	src, hasSrc, err := m.vertex(ctx, parts[recordstore.RoleSource], res)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dst, hasDst, err := m.vertex(ctx, parts[recordstore.RoleDestination], res)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if !hasSrc || !hasDst {
		return nil
	}

	txAttrs := parts[recordstore.RoleTransaction]
	directed := true
	if d, ok := txAttrs[AttrDirected].(bool); ok {
		directed = d
	}
	tx, err := m.sink.AddTransaction(ctx, src, dst, directed)
	if err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	res.TransactionsAdded++
	for name, value := range txAttrs {
		if name == recordstore.ID || name == AttrDirected {
			continue
		}
		if err := m.set(ctx, ElementTransaction, name, tx, value); err != nil {
			return err
		}
	}
	if m.completer != nil {
		return m.completer.CompleteTransaction(ctx, tx)
	}
	return nil
}

func (m *merger) vertex(ctx context.Context, attrs map[string]any, res *MergeResult) (int, bool, error) {
	if len(attrs) == 0 {
		return 0, false, nil
	}

	id, found := recordstore.Int(attrs[recordstore.ID])
	if !found && m.finder != nil {
		if ident := recordstore.String(attrs[AttrIdentifier]); ident != "" {
			var err error
			id, found, err = m.finder.FindVertex(ctx, ident, recordstore.String(attrs[AttrType]))
			if err != nil {
				return 0, false, err
			}
		}
	}
	if found {
		res.VerticesReused++
	} else {
		var err error
		if id, err = m.sink.AddVertex(ctx); err != nil {
			return 0, false, err
		}
		res.VerticesAdded++
	}

	for name, value := range attrs {
		if name == recordstore.ID {
			continue
		}
		if err := m.set(ctx, ElementVertex, name, id, value); err != nil {
			return 0, false, err
		}
	}
	if m.completer != nil {
		if err := m.completer.CompleteVertex(ctx, id); err != nil {
			return 0, false, err
		}
	}
	return id, true, nil
}

func (m *merger) set(ctx context.Context, element ElementType, name string, id int, value any) error {
	vt, v := Normalize(name, value)
	key := attrKey{element: element, name: name}
	attr, ok := m.attrs[key]
	if !ok {
		var err error
		if attr, err = m.sink.EnsureAttribute(ctx, element, name, vt); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		m.attrs[key] = attr
	}
	return m.sink.SetValue(ctx, attr, id, v)
}

// Normalize picks the attribute type for a record value and converts the
// value to the representation sinks store. Type attributes always hold the
// type name and DateTime attributes hold epoch milliseconds.
func Normalize(name string, value any) (ValueType, any) {
	switch name {
	case AttrType:
		return ValueSemantic, recordstore.String(value)
	case AttrDateTime:
		if n, ok := recordstore.Int(value); ok {
			return ValueDateTime, int64(n)
		}
	}

	switch v := value.(type) {
	case *taxonomy.SemanticType:
		return ValueSemantic, v.Name
	case string:
		return ValueString, v
	case bool:
		return ValueBool, v
	case int:
		return ValueInt, int64(v)
	case int64:
		return ValueInt, v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return ValueInt, int64(v)
		}
		return ValueFloat, v
	default:
		return ValueObject, v
	}
}
