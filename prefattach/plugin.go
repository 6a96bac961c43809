package prefattach

import (
	"context"
	"errors"

	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/schema"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

// Plugin and method names.
const (
	PluginName  = "preferential-attachment"
	MethodBuild = "build"
)

// Parameter names of the build method.
const (
	ParamN                = "n"
	ParamM                = "m"
	ParamRandomWeights    = "random_weights"
	ParamVertexTypes      = "vertex_types"
	ParamTransactionTypes = "transaction_types"
	ParamSeed             = "seed"
)

type builder struct {
	gen      *Generator
	defaults Config
}

// NewPlugin wraps g as the preferential-attachment plugin. The type
// parameters are restricted to the names known to catalog, and default to
// all of them. The graph to build into is taken from the context.
func NewPlugin(g *Generator, catalog *taxonomy.Catalog, opts ...func(*plugin.Config)) (plugin.Plugin, error) {
	b := &builder{gen: g, defaults: DefaultConfig(catalog)}

	cfg := plugin.NewConfig()
	cfg.SetName(PluginName)
	cfg.SetVersion("1.0.0")
	cfg.SetDescription("Build a random scale-free graph by preferential attachment")
	cfg.SetLogger(g.logger)

	cfg.AddMethod(MethodBuild, "Generate vertices and transactions into the attached graph",
		b.handleBuild,
		schema.Object(map[string]schema.JSON{
			ParamN:                schema.IntMin(1).WithDesc("Number of vertices").WithDefault(b.defaults.N),
			ParamM:                schema.IntMin(1).WithDesc("Links per new vertex, must be less than n").WithDefault(b.defaults.M),
			ParamRandomWeights:    schema.Bool().WithDesc("Random parallel edge counts and directions").WithDefault(false),
			ParamVertexTypes:      typeList(b.defaults.VertexTypes).WithDesc("Vertex types to draw from"),
			ParamTransactionTypes: typeList(b.defaults.TransactionTypes).WithDesc("Transaction types to draw from"),
			ParamSeed:             schema.IntMin(0).WithDesc("Random seed for a reproducible graph"),
		}),
		schema.FromType(Result{}),
	)
	for _, opt := range opts {
		opt(cfg)
	}
	return plugin.New(cfg)
}

func typeList(names []string) schema.JSON {
	if len(names) == 0 {
		return schema.NonEmptyArray(schema.NonEmptyString())
	}
	return schema.NonEmptyArray(schema.StringEnum(names...))
}

func (b *builder) handleBuild(ctx context.Context, raw map[string]any) (any, error) {
	const op = PluginName + "." + MethodBuild
	params := plugin.Params(raw)
	cfg := b.defaults

	var err error
	if cfg.N, err = params.Int(ParamN, cfg.N); err != nil {
		return nil, plugin.NewValidationError(op, err)
	}
	if cfg.M, err = params.Int(ParamM, cfg.M); err != nil {
		return nil, plugin.NewValidationError(op, err)
	}
	if cfg.RandomWeights, err = params.Bool(ParamRandomWeights, false); err != nil {
		return nil, plugin.NewValidationError(op, err)
	}
	if cfg.VertexTypes, err = params.Strings(ParamVertexTypes, cfg.VertexTypes); err != nil {
		return nil, plugin.NewValidationError(op, err)
	}
	if cfg.TransactionTypes, err = params.Strings(ParamTransactionTypes, cfg.TransactionTypes); err != nil {
		return nil, plugin.NewValidationError(op, err)
	}
	if _, ok := raw[ParamSeed]; ok {
		seed, err := params.Int(ParamSeed, 0)
		if err != nil {
			return nil, plugin.NewValidationError(op, err)
		}
		s := uint64(seed)
		cfg.Seed = &s
	}
	cfg.FreezeGraphView = plugin.PreferencesFrom(ctx).FreezeGraphView

	sink, ok := plugin.SinkFrom(ctx)
	if !ok {
		return nil, plugin.NewValidationError(op, errors.New("no graph is attached"))
	}
	return b.gen.Run(ctx, sink, cfg)
}
