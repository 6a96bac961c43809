// Package neo4jgraph stores graphs written through graph.Sink in Neo4j.
//
// Every vertex is a (:GraphkitVertex) node and every transaction a
// [:TRANSACTION] relationship. Both carry the id of the graph they belong to,
// so several generated graphs can share one database.
package neo4jgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zero-day-ai/graphkit/graph"
)

// Sink is a graph.Sink backed by a Neo4j database.
type Sink struct {
	driver   neo4j.DriverWithContext
	database string
	graphID  string
	logger   *slog.Logger

	mu           sync.Mutex
	vertices     int
	transactions int
	attrs        []graph.Attribute
	attrIndex    map[string]graph.AttributeID
}

// Option configures a Sink.
type Option func(*Sink)

// WithDatabase selects the Neo4j database. The server default is used otherwise.
func WithDatabase(name string) Option {
	return func(s *Sink) { s.database = name }
}

// WithGraphID scopes the sink to an existing graph. A new random id is used otherwise.
func WithGraphID(id string) Option {
	return func(s *Sink) { s.graphID = id }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// Open returns a sink writing to driver. When the graph id already has
// elements in the database, new ids continue after the highest stored ones.
func Open(ctx context.Context, driver neo4j.DriverWithContext, opts ...Option) (*Sink, error) {
	s := &Sink{
		driver:    driver,
		logger:    slog.New(slog.DiscardHandler),
		attrIndex: make(map[string]graph.AttributeID),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.graphID == "" {
		s.graphID = uuid.NewString()
	}

	rec, err := s.single(ctx, neo4j.AccessModeRead, `
		OPTIONAL MATCH (v:GraphkitVertex {graph: $graph})
		WITH coalesce(max(v.vid), -1) AS maxVertex
		OPTIONAL MATCH (:GraphkitVertex {graph: $graph})-[t:TRANSACTION]->()
		RETURN maxVertex, coalesce(max(t.tid), -1) AS maxTransaction
	`, map[string]any{"graph": s.graphID})
	if err != nil {
		return nil, fmt.Errorf("open graph %s: %w", s.graphID, err)
	}
	s.vertices = int(intFromRecord(rec, "maxVertex")) + 1
	s.transactions = int(intFromRecord(rec, "maxTransaction")) + 1

	s.logger.Debug("opened neo4j graph", "graph", s.graphID, "vertices", s.vertices, "transactions", s.transactions)
	return s, nil
}

// GraphID returns the id scoping this sink's elements.
func (s *Sink) GraphID() string {
	return s.graphID
}

// AddVertex implements graph.Sink.
func (s *Sink) AddVertex(ctx context.Context) (int, error) {
	s.mu.Lock()
	id := s.vertices
	s.mu.Unlock()

	err := s.write(ctx, `CREATE (:GraphkitVertex {graph: $graph, vid: $vid})`,
		map[string]any{"graph": s.graphID, "vid": int64(id)})
	if err != nil {
		return 0, fmt.Errorf("add vertex: %w", err)
	}

	s.mu.Lock()
	s.vertices++
	s.mu.Unlock()
	return id, nil
}

// AddTransaction implements graph.Sink.
func (s *Sink) AddTransaction(ctx context.Context, source, destination int, directed bool) (int, error) {
	s.mu.Lock()
	id := s.transactions
	s.mu.Unlock()

	rec, err := s.single(ctx, neo4j.AccessModeWrite, `
		OPTIONAL MATCH (a:GraphkitVertex {graph: $graph, vid: $src})
		OPTIONAL MATCH (b:GraphkitVertex {graph: $graph, vid: $dst})
		FOREACH (_ IN CASE WHEN a IS NOT NULL AND b IS NOT NULL THEN [1] ELSE [] END |
			CREATE (a)-[:TRANSACTION {graph: $graph, tid: $tid, directed: $directed}]->(b))
		RETURN a IS NOT NULL AND b IS NOT NULL AS created
	`, map[string]any{
		"graph":    s.graphID,
		"src":      int64(source),
		"dst":      int64(destination),
		"tid":      int64(id),
		"directed": directed,
	})
	if err != nil {
		return 0, fmt.Errorf("add transaction: %w", err)
	}
	if created, _ := rec.Get("created"); created != true {
		return 0, fmt.Errorf("add transaction %d -> %d: %w", source, destination, graph.ErrVertexNotFound)
	}

	s.mu.Lock()
	s.transactions++
	s.mu.Unlock()
	return id, nil
}

// EnsureAttribute implements graph.Sink. Attributes map to node or
// relationship properties; graph attributes live on a (:GraphkitGraph) node.
func (s *Sink) EnsureAttribute(_ context.Context, element graph.ElementType, name string, valueType graph.ValueType) (graph.AttributeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(element) + "/" + name
	if id, ok := s.attrIndex[key]; ok {
		if existing := s.attrs[id].ValueType; existing != valueType {
			return 0, fmt.Errorf("%w: %s is %s, not %s", graph.ErrAttributeType, key, existing, valueType)
		}
		return id, nil
	}
	id := graph.AttributeID(len(s.attrs))
	s.attrs = append(s.attrs, graph.Attribute{ID: id, Element: element, Name: name, ValueType: valueType})
	s.attrIndex[key] = id
	return id, nil
}

// SetValue implements graph.Sink.
func (s *Sink) SetValue(ctx context.Context, attr graph.AttributeID, elementID int, value any) error {
	s.mu.Lock()
	if attr < 0 || int(attr) >= len(s.attrs) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", graph.ErrAttributeNotFound, attr)
	}
	a := s.attrs[attr]
	s.mu.Unlock()

	prop, err := property(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", a.Name, err)
	}
	params := map[string]any{
		"graph": s.graphID,
		"id":    int64(elementID),
		"props": map[string]any{a.Name: prop},
	}

	var query string
	var notFound error
	switch a.Element {
	case graph.ElementVertex:
		query = `MATCH (e:GraphkitVertex {graph: $graph, vid: $id}) SET e += $props RETURN count(e) AS n`
		notFound = graph.ErrVertexNotFound
	case graph.ElementTransaction:
		query = `MATCH ()-[e:TRANSACTION {graph: $graph, tid: $id}]->() SET e += $props RETURN count(e) AS n`
		notFound = graph.ErrTransactionNotFound
	default:
		query = `MERGE (e:GraphkitGraph {graph: $graph}) SET e += $props RETURN count(e) AS n`
	}

	rec, err := s.single(ctx, neo4j.AccessModeWrite, query, params)
	if err != nil {
		return fmt.Errorf("set %s: %w", a.Name, err)
	}
	if intFromRecord(rec, "n") == 0 && notFound != nil {
		return fmt.Errorf("set %s on %d: %w", a.Name, elementID, notFound)
	}
	return nil
}

// CompleteVertex implements graph.Completer by deriving the display label
// "<identifier><<type>>".
func (s *Sink) CompleteVertex(ctx context.Context, id int) error {
	return s.write(ctx, `
		MATCH (v:GraphkitVertex {graph: $graph, vid: $id})
		SET v.label = coalesce(v.Identifier, '') + '<' + coalesce(v.Type, '') + '>'
	`, map[string]any{"graph": s.graphID, "id": int64(id)})
}

// CompleteTransaction implements graph.Completer.
func (s *Sink) CompleteTransaction(ctx context.Context, id int) error {
	return s.write(ctx, `
		MATCH ()-[t:TRANSACTION {graph: $graph, tid: $id}]->()
		SET t.label = coalesce(t.Type, '')
	`, map[string]any{"graph": s.graphID, "id": int64(id)})
}

// FindVertex implements graph.Finder.
func (s *Sink) FindVertex(ctx context.Context, identifier, typeName string) (int, bool, error) {
	rec, err := s.single(ctx, neo4j.AccessModeRead, `
		OPTIONAL MATCH (v:GraphkitVertex {graph: $graph, Identifier: $identifier})
		WHERE $type = '' OR v.Type = $type
		RETURN min(v.vid) AS vid
	`, map[string]any{"graph": s.graphID, "identifier": identifier, "type": typeName})
	if err != nil {
		return 0, false, fmt.Errorf("find vertex %q: %w", identifier, err)
	}
	v, ok := rec.Get("vid")
	if !ok || v == nil {
		return 0, false, nil
	}
	return int(intFromRecord(rec, "vid")), true, nil
}

// Clear deletes every element of this graph.
func (s *Sink) Clear(ctx context.Context) error {
	err := s.write(ctx, `
		MATCH (e {graph: $graph})
		WHERE e:GraphkitVertex OR e:GraphkitGraph
		DETACH DELETE e
	`, map[string]any{"graph": s.graphID})
	if err != nil {
		return fmt.Errorf("clear graph %s: %w", s.graphID, err)
	}
	s.mu.Lock()
	s.vertices, s.transactions = 0, 0
	s.mu.Unlock()
	return nil
}

func (s *Sink) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Sink) write(ctx context.Context, query string, params map[string]any) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (s *Sink) single(ctx context.Context, mode neo4j.AccessMode, query string, params map[string]any) (*neo4j.Record, error) {
	session := s.session(ctx, mode)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Single(ctx)
}

// property converts a value to a type Neo4j accepts as a property.
func property(value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case []string:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("unsupported property value %T: %w", v, err)
		}
		return string(data), nil
	}
}

func intFromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
