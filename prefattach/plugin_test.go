package prefattach

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

func newTestPlugin(t *testing.T) plugin.Plugin {
	t.Helper()
	p, err := NewPlugin(newTestGenerator(), nil)
	require.NoError(t, err)
	return p
}

func TestPlugin_Descriptor(t *testing.T) {
	p := newTestPlugin(t)
	assert.Equal(t, PluginName, p.Name())
	require.Len(t, p.Methods(), 1)

	m := p.Methods()[0]
	assert.Equal(t, MethodBuild, m.Name)
	for _, name := range []string{ParamN, ParamM, ParamRandomWeights, ParamVertexTypes, ParamTransactionTypes, ParamSeed} {
		assert.Contains(t, m.InputSchema.Properties, name)
	}
	assert.Equal(t, 5000, m.InputSchema.Properties[ParamN].Default)
}

func TestPlugin_Build(t *testing.T) {
	g := graph.NewMemoryGraph()
	ctx := plugin.WithSink(context.Background(), g)

	out, err := newTestPlugin(t).Query(ctx, MethodBuild, map[string]any{
		ParamN:                float64(12),
		ParamM:                float64(2),
		ParamSeed:             float64(7),
		ParamVertexTypes:      []any{taxonomy.TypeHostName},
		ParamTransactionTypes: []any{taxonomy.TypeNetwork},
	})
	require.NoError(t, err)

	res, ok := out.(Result)
	require.True(t, ok)
	assert.Equal(t, 12, res.Vertices)
	assert.Equal(t, 20, res.Transactions)
	assert.Equal(t, 12, g.VertexCount())

	typ, _ := g.Value(graph.ElementVertex, graph.AttrType, 3)
	assert.Equal(t, taxonomy.TypeHostName, typ)
}

func TestPlugin_FreezePreference(t *testing.T) {
	g := graph.NewMemoryGraph()
	ctx := plugin.WithSink(context.Background(), g)
	ctx = plugin.WithPreferences(ctx, plugin.Preferences{FreezeGraphView: true})

	_, err := newTestPlugin(t).Query(ctx, MethodBuild, map[string]any{ParamN: 4, ParamM: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{graph.LayoutReset}, g.Layouts())
}

func TestPlugin_Errors(t *testing.T) {
	tests := []struct {
		name   string
		attach bool
		params map[string]any
		check  func(error) bool
	}{
		{name: "m not below n", attach: true, params: map[string]any{ParamN: 3, ParamM: 3}, check: plugin.IsValidation},
		{name: "m zero rejected by schema", attach: true, params: map[string]any{ParamN: 3, ParamM: 0}, check: plugin.IsValidation},
		{name: "unknown vertex type", attach: true, params: map[string]any{ParamVertexTypes: []any{"Spaceship"}}, check: plugin.IsValidation},
		{name: "no graph attached", params: map[string]any{ParamN: 3, ParamM: 1}, check: plugin.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.NewMemoryGraph()
			ctx := context.Background()
			if tt.attach {
				ctx = plugin.WithSink(ctx, g)
			}
			_, err := newTestPlugin(t).Query(ctx, MethodBuild, tt.params)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind %q: %v", plugin.KindOf(err), err)
			assert.Zero(t, g.VertexCount())
		})
	}
}

func TestPlugin_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &cancellingSink{MemoryGraph: graph.NewMemoryGraph(), cancel: cancel, afterVertices: 2}

	_, err := newTestPlugin(t).Query(plugin.WithSink(ctx, sink), MethodBuild, map[string]any{ParamN: 10, ParamM: 1})
	require.Error(t, err)
	assert.True(t, plugin.IsInterrupted(err))
	assert.Equal(t, 2, sink.VertexCount())
}
