package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedPlugin(t *testing.T, name string) Plugin {
	t.Helper()
	cfg := echoConfig()
	cfg.SetName(name)
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(namedPlugin(t, "b"), namedPlugin(t, "a"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, r.Names())
	ds := r.Descriptors()
	require.Len(t, ds, 2)
	assert.Equal(t, "a", ds[0].Name)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)

	out, err := r.Query(ctx, "a", "echo", map[string]any{"message": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "x"}, out)

	require.NoError(t, r.InitializeAll(ctx, nil))
	p, err := r.Get("b")
	require.NoError(t, err)
	assert.True(t, p.Health(ctx).IsHealthy())
	require.NoError(t, r.ShutdownAll(ctx))
	assert.Error(t, r.ShutdownAll(ctx), "second shutdown reports every plugin")
}

func TestNewRegistry_Errors(t *testing.T) {
	_, err := NewRegistry(namedPlugin(t, "a"), namedPlugin(t, "a"))
	assert.Equal(t, KindConfiguration, KindOf(err))

	_, err = NewRegistry(nil)
	assert.Error(t, err)
}
