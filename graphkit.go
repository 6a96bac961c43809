package graphkit

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zero-day-ai/graphkit/component"
	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/prefattach"
	"github.com/zero-day-ai/graphkit/recordstore"
	"github.com/zero-day-ai/graphkit/serve"
	"github.com/zero-day-ai/graphkit/splitnodes"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

// Toolkit bundles a catalog with the generator and the split transform
// configured against it.
type Toolkit struct {
	catalog   *taxonomy.Catalog
	logger    *slog.Logger
	generator *prefattach.Generator
	splitter  *splitnodes.Transform
}

// New returns a Toolkit.
func New(opts ...Option) *Toolkit {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.catalog == nil {
		o.catalog = taxonomy.Default()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	genOpts := []prefattach.Option{prefattach.WithLogger(o.logger)}
	splitOpts := []splitnodes.Option{splitnodes.WithLogger(o.logger)}
	if o.tracer != nil {
		genOpts = append(genOpts, prefattach.WithTracer(o.tracer))
	}
	if o.meter != nil {
		genOpts = append(genOpts, prefattach.WithMeter(o.meter))
		splitOpts = append(splitOpts, splitnodes.WithMeter(o.meter))
	}
	if o.arranger != nil {
		genOpts = append(genOpts, prefattach.WithArranger(o.arranger))
	}

	return &Toolkit{
		catalog:   o.catalog,
		logger:    o.logger,
		generator: prefattach.New(genOpts...),
		splitter:  splitnodes.New(o.catalog, splitOpts...),
	}
}

// FromConfig builds a Toolkit from a loaded graphkit.yaml. The catalog and
// logger come from the file; opts are applied after them.
func FromConfig(ctx context.Context, cfg *component.Config, opts ...Option) (*Toolkit, error) {
	catalog, err := cfg.Catalog.Load(ctx)
	if err != nil {
		return nil, plugin.NewConfigurationError("graphkit.FromConfig", fmt.Errorf("load catalog: %w", err))
	}
	base := []Option{
		WithCatalog(catalog),
		WithLogger(cfg.Log.Logger(os.Stderr)),
	}
	return New(append(base, opts...)...), nil
}

// Catalog returns the semantic type catalog.
func (t *Toolkit) Catalog() *taxonomy.Catalog {
	return t.catalog
}

// Logger returns the toolkit logger.
func (t *Toolkit) Logger() *slog.Logger {
	return t.logger
}

// GeneratorConfig returns the generator defaults for this catalog.
func (t *Toolkit) GeneratorConfig() prefattach.Config {
	return prefattach.DefaultConfig(t.catalog)
}

// Generate builds a preferential attachment graph into sink.
func (t *Toolkit) Generate(ctx context.Context, sink graph.Sink, cfg prefattach.Config) (prefattach.Result, error) {
	return t.generator.Run(ctx, sink, cfg)
}

// Split returns the split proposals for the rows of in.
func (t *Toolkit) Split(ctx context.Context, in *recordstore.Store, opts splitnodes.Options) (*recordstore.Store, error) {
	return t.splitter.Apply(ctx, in, opts)
}

// SplitInto splits the rows of in and merges the proposals into sink.
func (t *Toolkit) SplitInto(ctx context.Context, sink graph.Sink, in *recordstore.Store, opts splitnodes.Options) (graph.MergeResult, error) {
	out, err := t.Split(ctx, in, opts)
	if err != nil {
		return graph.MergeResult{}, err
	}
	res, err := graph.Merge(ctx, out, sink)
	if err != nil && ctx.Err() != nil {
		return res, plugin.NewInterruptedError("graphkit.SplitInto", err)
	}
	return res, err
}

// Plugins returns an initialized registry holding the split and the
// preferential attachment plugins.
func (t *Toolkit) Plugins(ctx context.Context) (*plugin.Registry, error) {
	split, err := splitnodes.NewPlugin(t.splitter)
	if err != nil {
		return nil, err
	}
	gen, err := prefattach.NewPlugin(t.generator, t.catalog)
	if err != nil {
		return nil, err
	}
	reg, err := plugin.NewRegistry(split, gen)
	if err != nil {
		return nil, err
	}
	if err := reg.InitializeAll(ctx, nil); err != nil {
		return nil, err
	}
	return reg, nil
}

// Serve exposes the toolkit plugins over gRPC until ctx is done. Queries
// write into sink, which may be nil when only records are wanted.
func (t *Toolkit) Serve(ctx context.Context, sink graph.Sink, prefs plugin.Preferences, opts ...serve.Option) error {
	reg, err := t.Plugins(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.ShutdownAll(context.Background()); err != nil {
			t.logger.Warn("plugin shutdown failed", "error", err)
		}
	}()
	opts = append([]serve.Option{serve.WithLogger(t.logger)}, opts...)
	return serve.Run(ctx, reg, sink, prefs, opts...)
}
