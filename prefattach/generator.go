// Package prefattach builds random scale-free graphs by preferential
// attachment: a seed of m vertices, then n-m vertices that each link to m
// distinct existing vertices chosen in proportion to how many edges they
// already take part in.
package prefattach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

const instrumentationName = "github.com/zero-day-ai/graphkit/prefattach"

// LargeGraphThreshold is the vertex count from which the cheaper grid
// composite layout replaces the tree layout.
const LargeGraphThreshold = 10000

// maxTimestampAge bounds how far in the past transaction timestamps fall.
const maxTimestampAge = 4 * 24 * time.Hour

// Countries are the values drawn for the Geo.Country vertex attribute.
var Countries = []string{
	"Australia",
	"Brazil",
	"China",
	"France",
	"Japan",
	"New Zealand",
	"South Africa",
	"United Arab Emirates",
	"United Kingdom",
	"United States",
}

// Progress messages.
const (
	MessageBuilding  = "Building..."
	MessageCompleted = "Completed successfully"
)

// Reciprocity decides the direction of the edges a new vertex creates.
// It is drawn once per new vertex and only applies with random weights.
type Reciprocity int

const (
	// ReciprocityEven reverses each edge with probability 1/2.
	ReciprocityEven Reciprocity = iota
	// ReciprocityOutbound reverses each edge with probability 1/5.
	ReciprocityOutbound
	// ReciprocityInbound keeps each edge forward with probability 1/5.
	ReciprocityInbound
)

// Config describes one generated graph.
type Config struct {
	// N is the total number of vertices.
	N int `json:"n" validate:"gte=1"`

	// M is the number of seed vertices and the number of distinct
	// destinations each later vertex links to.
	M int `json:"m" validate:"gte=1,ltfield=N"`

	// RandomWeights draws a random edge count per destination and lets
	// the reciprocity mode reverse edges.
	RandomWeights bool `json:"random_weights"`

	// VertexTypes and TransactionTypes are the type names drawn for each
	// element.
	VertexTypes      []string `json:"vertex_types" validate:"min=1,dive,required"`
	TransactionTypes []string `json:"transaction_types" validate:"min=1,dive,required"`

	// FreezeGraphView replaces the final layout with a view reset.
	FreezeGraphView bool `json:"freeze_graph_view"`

	// Seed makes the run reproducible when set.
	Seed *uint64 `json:"seed,omitempty"`
}

// DefaultConfig returns the configuration the plugin uses when a parameter
// is absent: 5000 vertices, one link per new vertex, and every vertex and
// transaction type of catalog.
func DefaultConfig(catalog *taxonomy.Catalog) Config {
	if catalog == nil {
		catalog = taxonomy.Default()
	}
	return Config{
		N:                5000,
		M:                1,
		VertexTypes:      catalog.Names(taxonomy.CategoryVertex),
		TransactionTypes: catalog.Names(taxonomy.CategoryTransaction),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return describe(verrs[0])
		}
		return err
	}
	return nil
}

func describe(fe validator.FieldError) error {
	field, _, _ := strings.Cut(fe.StructField(), "[")
	switch field {
	case "N":
		return fmt.Errorf("n must be at least 1, got %v", fe.Value())
	case "M":
		if fe.Tag() == "ltfield" {
			return fmt.Errorf("m must be less than n, got m=%v", fe.Value())
		}
		return fmt.Errorf("m must be at least 1, got %v", fe.Value())
	case "VertexTypes":
		return errors.New("at least one non-empty vertex type is required")
	case "TransactionTypes":
		return errors.New("at least one non-empty transaction type is required")
	}
	return fmt.Errorf("invalid %s: %s", fe.Field(), fe.Tag())
}

// Result summarises a run.
type Result struct {
	RunID        string        `json:"run_id"`
	Vertices     int           `json:"vertices"`
	Transactions int           `json:"transactions"`
	Layouts      []string      `json:"layouts,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Generator writes preferential attachment graphs into a sink. It keeps no
// per-run state and may be shared.
type Generator struct {
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	arranger     graph.Arranger
	vertices     metric.Int64Counter
	transactions metric.Int64Counter
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithTracer sets the tracer used for the run span.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Generator) { g.tracer = tracer }
}

// WithClock sets the time source for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithArranger sets where layouts are applied. Without it the sink is used
// when it implements graph.Arranger.
func WithArranger(a graph.Arranger) Option {
	return func(g *Generator) { g.arranger = a }
}

// WithMeter records created elements on the graphkit.generator.vertices and
// graphkit.generator.transactions counters.
func WithMeter(meter metric.Meter) Option {
	return func(g *Generator) {
		if c, err := meter.Int64Counter("graphkit.generator.vertices",
			metric.WithDescription("Vertices created by the preferential attachment generator"),
			metric.WithUnit("{vertex}")); err == nil {
			g.vertices = c
		}
		if c, err := meter.Int64Counter("graphkit.generator.transactions",
			metric.WithDescription("Transactions created by the preferential attachment generator"),
			metric.WithUnit("{transaction}")); err == nil {
			g.transactions = c
		}
	}
}

// New returns a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer(instrumentationName),
		now:    time.Now,
	}
	WithMeter(otel.Meter(instrumentationName))(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run generates cfg into sink. The configuration is validated before the
// sink is touched. Cancellation of ctx is observed after every vertex and
// every transaction; the elements created up to that point stay in the sink
// and the returned error is an interruption.
func (g *Generator) Run(ctx context.Context, sink graph.Sink, cfg Config) (Result, error) {
	const op = "prefattach.Run"
	if err := cfg.Validate(); err != nil {
		return Result{}, plugin.NewValidationError(op, err)
	}
	if sink == nil {
		return Result{}, plugin.NewValidationError(op, errors.New("no graph to write to"))
	}

	r := g.newRun(ctx, sink, cfg)

	ctx, span := g.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("graphkit.run_id", r.res.RunID),
		attribute.Int("graphkit.generator.n", cfg.N),
		attribute.Int("graphkit.generator.m", cfg.M),
		attribute.Bool("graphkit.generator.random_weights", cfg.RandomWeights),
	))
	defer span.End()

	logger := g.logger.With("run_id", r.res.RunID)
	logger.Info("generating graph", "n", cfg.N, "m", cfg.M, "random_weights", cfg.RandomWeights)

	err := r.generate(ctx)
	r.res.Duration = g.now().Sub(r.start)
	span.SetAttributes(
		attribute.Int("graphkit.generator.vertices", r.res.Vertices),
		attribute.Int("graphkit.generator.transactions", r.res.Transactions),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("generation stopped", "error", err,
			"vertices", r.res.Vertices, "transactions", r.res.Transactions)
		return r.res, err
	}
	logger.Info("graph generated",
		"vertices", r.res.Vertices,
		"transactions", r.res.Transactions,
		"layouts", r.res.Layouts,
		"duration", r.res.Duration)
	return r.res, nil
}

func (g *Generator) newRun(ctx context.Context, sink graph.Sink, cfg Config) *run {
	r := &run{
		gen:   g,
		cfg:   cfg,
		sink:  sink,
		rng:   newRand(cfg.Seed),
		ui:    plugin.InteractionFrom(ctx),
		start: g.now(),
		res:   Result{RunID: uuid.NewString()},
	}
	r.completer, _ = sink.(graph.Completer)
	return r
}

func newRand(seed *uint64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewPCG(*seed, *seed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// attrs holds the attribute handles a run writes.
type attrs struct {
	vxIdentifier, vxType, vxCountry, vxFlag graph.AttributeID
	txIdentifier, txType, txDateTime        graph.AttributeID
}

type run struct {
	gen       *Generator
	cfg       Config
	sink      graph.Sink
	completer graph.Completer
	rng       *rand.Rand
	ui        plugin.Interaction
	start     time.Time
	attrs     attrs
	res       Result

	// repeats holds the (new vertex, destination) pair of every edge
	// created, flattened. Sampling from it weights vertices by degree.
	repeats []int
}

func (r *run) generate(ctx context.Context) error {
	const op = "prefattach.Run"
	r.ui.SetProgress(0, 0, MessageBuilding, true)

	if err := r.ensureAttributes(ctx); err != nil {
		return r.fail(ctx, op, err)
	}

	seeds := make([]int, 0, r.cfg.M)
	for range r.cfg.M {
		id, err := r.addVertex(ctx)
		if err != nil {
			return r.fail(ctx, op, err)
		}
		seeds = append(seeds, id)
		if err := ctx.Err(); err != nil {
			return plugin.NewInterruptedError(op, err)
		}
	}
	trace.SpanFromContext(ctx).AddEvent("seeded", trace.WithAttributes(attribute.Int("vertices", len(seeds))))

	destinations := seeds
	for r.res.Vertices < r.cfg.N {
		src, err := r.addVertex(ctx)
		if err != nil {
			return r.fail(ctx, op, err)
		}
		if err := ctx.Err(); err != nil {
			return plugin.NewInterruptedError(op, err)
		}

		mode := Reciprocity(r.rng.IntN(3))
		for _, dst := range destinations {
			for range r.edgeCount() {
				from, to := src, dst
				if r.cfg.RandomWeights && r.reverse(mode) {
					from, to = dst, src
				}
				if err := r.addTransaction(ctx, from, to); err != nil {
					return r.fail(ctx, op, err)
				}
				r.repeats = append(r.repeats, src, dst)
				if err := ctx.Err(); err != nil {
					return plugin.NewInterruptedError(op, err)
				}
			}
		}
		destinations = r.sampleDestinations()
		r.ui.SetProgress(r.res.Vertices, r.cfg.N, MessageBuilding, false)
	}

	r.arrange(ctx)
	r.ui.SetProgress(r.cfg.N, r.cfg.N, MessageCompleted, false)
	return nil
}

// fail classifies a sink error. Errors caused by cancellation are
// interruptions.
func (r *run) fail(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return plugin.NewInterruptedError(op, ctxErr)
	}
	return plugin.NewExecutionError(op, err)
}

func (r *run) ensureAttributes(ctx context.Context) error {
	specs := []struct {
		dst     *graph.AttributeID
		element graph.ElementType
		name    string
		vt      graph.ValueType
	}{
		{&r.attrs.vxIdentifier, graph.ElementVertex, graph.AttrIdentifier, graph.ValueString},
		{&r.attrs.vxType, graph.ElementVertex, graph.AttrType, graph.ValueSemantic},
		{&r.attrs.vxCountry, graph.ElementVertex, graph.AttrCountry, graph.ValueString},
		{&r.attrs.vxFlag, graph.ElementVertex, graph.AttrFlag, graph.ValueBool},
		{&r.attrs.txIdentifier, graph.ElementTransaction, graph.AttrIdentifier, graph.ValueInt},
		{&r.attrs.txType, graph.ElementTransaction, graph.AttrType, graph.ValueSemantic},
		{&r.attrs.txDateTime, graph.ElementTransaction, graph.AttrDateTime, graph.ValueDateTime},
	}
	for _, s := range specs {
		id, err := r.sink.EnsureAttribute(ctx, s.element, s.name, s.vt)
		if err != nil {
			return fmt.Errorf("ensure %s.%s: %w", s.element, s.name, err)
		}
		*s.dst = id
	}

	decorators, err := r.sink.EnsureAttribute(ctx, graph.ElementGraph, graph.AttrDecorators, graph.ValueObject)
	if err != nil {
		return fmt.Errorf("ensure decorators: %w", err)
	}
	return r.sink.SetValue(ctx, decorators, graph.GraphElementID, graph.Decorators{
		NorthEast: graph.AttrCountry,
		SouthWest: graph.AttrFlag,
	})
}

// addVertex creates the next vertex with its attributes. Identifiers count
// vertices created by this run, so they are unique and ordered.
func (r *run) addVertex(ctx context.Context) (int, error) {
	id, err := r.sink.AddVertex(ctx)
	if err != nil {
		return 0, err
	}
	seq := r.res.Vertices
	r.res.Vertices++
	if r.gen.vertices != nil {
		r.gen.vertices.Add(ctx, 1)
	}

	values := []struct {
		attr  graph.AttributeID
		value any
	}{
		{r.attrs.vxIdentifier, fmt.Sprintf("Node_%d", seq)},
		{r.attrs.vxType, pick(r.rng, r.cfg.VertexTypes)},
		{r.attrs.vxFlag, r.rng.IntN(10) == 0},
		{r.attrs.vxCountry, pick(r.rng, Countries)},
	}
	for _, v := range values {
		if err := r.sink.SetValue(ctx, v.attr, id, v.value); err != nil {
			return id, err
		}
	}
	if r.completer != nil {
		if err := r.completer.CompleteVertex(ctx, id); err != nil {
			return id, err
		}
	}
	return id, nil
}

func (r *run) addTransaction(ctx context.Context, src, dst int) error {
	id, err := r.sink.AddTransaction(ctx, src, dst, true)
	if err != nil {
		return err
	}
	r.res.Transactions++
	if r.gen.transactions != nil {
		r.gen.transactions.Add(ctx, 1)
	}

	age := time.Duration(r.rng.Int64N(int64(maxTimestampAge/time.Millisecond))) * time.Millisecond
	values := []struct {
		attr  graph.AttributeID
		value any
	}{
		{r.attrs.txDateTime, r.start.Add(-age).UnixMilli()},
		{r.attrs.txType, pick(r.rng, r.cfg.TransactionTypes)},
		{r.attrs.txIdentifier, id},
	}
	for _, v := range values {
		if err := r.sink.SetValue(ctx, v.attr, id, v.value); err != nil {
			return err
		}
	}
	if r.completer != nil {
		return r.completer.CompleteTransaction(ctx, id)
	}
	return nil
}

// edgeCount is the number of parallel edges to one destination: 1 without
// random weights, otherwise a value in [1, 100] skewed towards small counts.
func (r *run) edgeCount() int {
	if !r.cfg.RandomWeights {
		return 1
	}
	return 1 + r.rng.IntN(1+r.rng.IntN(100))
}

// reverse reports whether an edge from the new vertex is flipped.
func (r *run) reverse(mode Reciprocity) bool {
	switch mode {
	case ReciprocityEven:
		return r.rng.IntN(2) == 0
	case ReciprocityOutbound:
		return r.rng.IntN(5) == 0
	default:
		return r.rng.IntN(5) != 0
	}
}

// sampleDestinations draws from repeats until m distinct vertices are
// found. Every seed gets at least one edge in the first growth step, so
// repeats holds m+1 distinct vertices before the first draw.
func (r *run) sampleDestinations() []int {
	seen := make(map[int]struct{}, r.cfg.M)
	out := make([]int, 0, r.cfg.M)
	for len(out) < r.cfg.M {
		v := r.repeats[r.rng.IntN(len(r.repeats))]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// arrange applies the final layout. Layout failures are logged and do not
// fail the run.
func (r *run) arrange(ctx context.Context) {
	arranger := r.gen.arranger
	if arranger == nil {
		if a, ok := r.sink.(graph.Arranger); ok {
			arranger = a
		} else {
			arranger = graph.NopArranger
		}
	}

	var layouts []string
	switch {
	case r.cfg.FreezeGraphView:
		layouts = []string{graph.LayoutReset}
	case r.cfg.N < LargeGraphThreshold:
		layouts = []string{graph.LayoutTrees, graph.LayoutReset}
	default:
		layouts = []string{graph.LayoutGridComposite, graph.LayoutReset}
	}
	for _, layout := range layouts {
		if err := arranger.Arrange(ctx, layout); err != nil {
			r.gen.logger.Warn("layout failed", "run_id", r.res.RunID, "layout", layout, "error", err)
			continue
		}
		r.res.Layouts = append(r.res.Layouts, layout)
	}
}

func pick[T any](rng *rand.Rand, from []T) T {
	return from[rng.IntN(len(from))]
}
