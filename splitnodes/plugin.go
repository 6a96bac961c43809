package splitnodes

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/recordstore"
	"github.com/zero-day-ai/graphkit/schema"
	"github.com/zero-day-ai/graphkit/selection"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

// Plugin and method names.
const (
	PluginName  = "split-nodes"
	MethodSplit = "split"
)

// Parameter names of the split method.
const (
	ParamDelimiter       = "delimiter"
	ParamTransactionType = "transaction_type"
	ParamAllOccurrences  = "all_occurrences"
	ParamRecords         = "records"
	ParamVertices        = "vertices"
	ParamMerge           = "merge"
)

// Output is the result of the split method.
type Output struct {
	Records []map[string]any   `json:"records"`
	Count   int                `json:"count"`
	Merged  *graph.MergeResult `json:"merged,omitempty"`
}

// NewPlugin wraps t as the split-nodes plugin.
//
// Input rows come from the records parameter or, when it is absent, from the
// vertices of the graph in the context: the ids in the vertices parameter, or
// the selected vertices when that is absent too. With merge set the proposals
// are merged into the context graph before returning.
func NewPlugin(t *Transform, opts ...func(*plugin.Config)) (plugin.Plugin, error) {
	cfg := plugin.NewConfig()
	cfg.SetName(PluginName)
	cfg.SetVersion("1.0.0")
	cfg.SetDescription("Split vertex identifiers on a delimiter and link the fragments")
	cfg.SetLogger(t.logger)

	linkTypes := t.catalog.Names(taxonomy.CategoryTransaction)
	linkSchema := schema.String()
	if len(linkTypes) > 0 {
		linkSchema = schema.StringEnum(linkTypes...)
	}

	cfg.AddMethod(MethodSplit, "Propose split vertices and links as record store rows",
		t.handleSplit,
		schema.Object(map[string]schema.JSON{
			ParamDelimiter:       schema.NonEmptyString().WithDesc("Text to split identifiers on, matched literally"),
			ParamTransactionType: linkSchema.WithDesc("Type of the link between fragments").WithDefault(DefaultTransactionType),
			ParamAllOccurrences:  schema.Bool().WithDesc("Split on every occurrence instead of the first").WithDefault(false),
			ParamRecords:         schema.Array(schema.Object(nil)).WithDesc("Input rows carrying source.Identifier"),
			ParamVertices:        schema.Array(schema.Int()).WithDesc("Vertex ids to read from the graph"),
			ParamMerge:           schema.Bool().WithDesc("Merge the proposals into the graph").WithDefault(false),
		}, ParamDelimiter),
		schema.FromType(Output{}),
	)
	for _, opt := range opts {
		opt(cfg)
	}
	return plugin.New(cfg)
}

func (t *Transform) handleSplit(ctx context.Context, raw map[string]any) (any, error) {
	const op = PluginName + "." + MethodSplit
	params := plugin.Params(raw)

	var opts Options
	var err error
	if opts.Delimiter, err = params.String(ParamDelimiter, ""); err != nil {
		return nil, plugin.NewValidationError(op, err)
	}
	if opts.TransactionType, err = params.String(ParamTransactionType, DefaultTransactionType); err != nil {
		return nil, plugin.NewValidationError(op, err)
	}
	if opts.AllOccurrences, err = params.Bool(ParamAllOccurrences, false); err != nil {
		return nil, plugin.NewValidationError(op, err)
	}
	merge, err := params.Bool(ParamMerge, false)
	if err != nil {
		return nil, plugin.NewValidationError(op, err)
	}

	sink, hasSink := plugin.SinkFrom(ctx)
	if merge && !hasSink {
		return nil, plugin.NewValidationError(op, fmt.Errorf("merge requested but no graph is attached"))
	}

	in, err := t.input(ctx, raw, sink)
	if err != nil {
		return nil, plugin.NewValidationError(op, err)
	}

	out, err := t.Apply(ctx, in, opts)
	if err != nil {
		return nil, err
	}

	result := Output{Records: out.Plain(), Count: out.Len()}
	if merge {
		res, err := graph.Merge(ctx, out, sink)
		if err != nil {
			if ctx.Err() != nil {
				return nil, plugin.NewInterruptedError(op, err)
			}
			return nil, plugin.NewExecutionError(op, err)
		}
		result.Merged = &res
	}
	return result, nil
}

// input builds the rows to split from the parameters or the attached graph.
func (t *Transform) input(ctx context.Context, raw map[string]any, sink graph.Sink) (*recordstore.Store, error) {
	if records, ok := raw[ParamRecords]; ok && records != nil {
		return recordstore.FromValue(records)
	}

	mem, ok := sink.(*graph.MemoryGraph)
	if !ok {
		return nil, fmt.Errorf("%s is required unless an in-memory graph is attached", ParamRecords)
	}

	var ids *selection.VertexSet
	if v, ok := raw[ParamVertices]; ok && v != nil {
		var err error
		if ids, err = selection.FromParam(v); err != nil {
			return nil, fmt.Errorf("%s: %w", ParamVertices, err)
		}
	} else {
		ids = graph.SelectedVertices(mem)
	}
	return VertexRows(ctx, mem, ids)
}

// VertexRows returns one row per vertex in ids with its id, identifier and
// type. Ids not present in g are ignored.
func VertexRows(ctx context.Context, g *graph.MemoryGraph, ids *selection.VertexSet) (*recordstore.Store, error) {
	rows := recordstore.New()
	n := g.VertexCount()
	for id := range ids.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if id >= n {
			continue
		}
		r := recordstore.Record{recordstore.SourceID: id}
		if v, ok := g.Value(graph.ElementVertex, graph.AttrIdentifier, id); ok {
			r[recordstore.SourceIdentifier] = v
		}
		if v, ok := g.Value(graph.ElementVertex, graph.AttrType, id); ok {
			r[recordstore.SourceType] = v
		}
		rows.Append(r)
	}
	return rows, nil
}
