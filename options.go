package graphkit

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

// Option configures a Toolkit.
type Option func(*options)

type options struct {
	catalog  *taxonomy.Catalog
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	arranger graph.Arranger
}

// WithCatalog sets the semantic type catalog. taxonomy.Default() is used
// otherwise.
func WithCatalog(catalog *taxonomy.Catalog) Option {
	return func(o *options) {
		o.catalog = catalog
	}
}

// WithLogger sets the logger handed to every component.
// If not provided, logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets the tracer used for generator runs.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMeter sets the meter for the generator and split counters.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithArranger lays out generated graphs with a, even when the sink can
// arrange itself.
func WithArranger(a graph.Arranger) Option {
	return func(o *options) {
		o.arranger = a
	}
}
