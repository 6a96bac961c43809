package plugin

import (
	"context"

	"github.com/zero-day-ai/graphkit/types"
)

// Plugin is an analytic operation the host can invoke by name. A plugin
// exposes named methods that read their parameters from a map and, when they
// change a graph, write through the graph.Sink the host placed in the context.
type Plugin interface {
	// Name returns the unique identifier, e.g. "split-nodes".
	Name() string

	// Version returns the semantic version.
	Version() string

	// Description returns a human-readable summary.
	Description() string

	// Methods describes the methods Query accepts.
	Methods() []MethodDescriptor

	// Query runs a method. Parameters are validated against the method's
	// input schema before the handler sees them.
	Query(ctx context.Context, method string, params map[string]any) (any, error)

	// Initialize is called once before the first Query.
	Initialize(ctx context.Context, config map[string]any) error

	// Shutdown releases resources. Query must not be called afterwards.
	Shutdown(ctx context.Context) error

	// Health reports whether the plugin can serve queries.
	Health(ctx context.Context) types.HealthStatus
}
