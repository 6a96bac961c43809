package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/graphkit/graph"
)

func TestParams(t *testing.T) {
	p := Params{
		"n":       float64(10),
		"m":       3,
		"half":    1.5,
		"flag":    true,
		"name":    "x",
		"types":   []any{"Person", "Country"},
		"natives": []string{"a"},
		"mixed":   []any{"a", 1},
	}

	n, err := p.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	m, err := p.Int("m", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, m)
	d, err := p.Int("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, d)
	_, err = p.Int("half", 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = p.Int("name", 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	b, err := p.Bool("flag", false)
	require.NoError(t, err)
	assert.True(t, b)
	_, err = p.Bool("name", false)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := p.String("name", "")
	require.NoError(t, err)
	assert.Equal(t, "x", s)
	s, err = p.String("missing", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", s)

	list, err := p.Strings("types", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Person", "Country"}, list)
	list, err = p.Strings("natives", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, list)
	_, err = p.Strings("mixed", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	_, ok := SinkFrom(ctx)
	assert.False(t, ok)
	g := graph.NewMemoryGraph()
	sink, ok := SinkFrom(WithSink(ctx, g))
	require.True(t, ok)
	assert.Same(t, g, sink)

	assert.False(t, PreferencesFrom(ctx).FreezeGraphView)
	assert.True(t, PreferencesFrom(WithPreferences(ctx, Preferences{FreezeGraphView: true})).FreezeGraphView)

	InteractionFrom(ctx).SetProgress(1, 2, "dropped", false)
	rec := &Recorder{}
	InteractionFrom(WithInteraction(ctx, rec)).SetProgress(1, 2, "kept", false)
	assert.Equal(t, []Progress{{Current: 1, Total: 2, Message: "kept"}}, rec.Updates)
}
