package plugin

import (
	"context"

	"github.com/zero-day-ai/graphkit/graph"
)

// Preferences are host settings a plugin reads once at the start of a method.
type Preferences struct {
	// FreezeGraphView stops plugins from re-arranging the graph after a
	// change; only a view reset is applied.
	FreezeGraphView bool `json:"freeze_graph_view" yaml:"freeze_graph_view"`
}

type (
	sinkKey        struct{}
	preferencesKey struct{}
)

// WithSink returns a context carrying the graph a method should mutate.
func WithSink(ctx context.Context, sink graph.Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// SinkFrom returns the graph carried by ctx.
func SinkFrom(ctx context.Context) (graph.Sink, bool) {
	s, ok := ctx.Value(sinkKey{}).(graph.Sink)
	return s, ok && s != nil
}

// WithPreferences returns a context carrying host preferences.
func WithPreferences(ctx context.Context, prefs Preferences) context.Context {
	return context.WithValue(ctx, preferencesKey{}, prefs)
}

// PreferencesFrom returns the preferences carried by ctx, or the zero value.
func PreferencesFrom(ctx context.Context) Preferences {
	prefs, _ := ctx.Value(preferencesKey{}).(Preferences)
	return prefs
}
