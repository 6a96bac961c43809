package component

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/prefattach"
	"github.com/zero-day-ai/graphkit/queue"
	"github.com/zero-day-ai/graphkit/splitnodes"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

const fullConfig = `
log:
  level: debug
  format: text
preferences:
  freeze_graph_view: true
generator:
  n: 200
  m: 3
  random_weights: true
  vertex_types: [Person]
  seed: 42
split:
  delimiter: "@"
  all_occurrences: true
queue:
  redis_url: redis://localhost:6379
  poll_timeout: 250ms
neo4j:
  uri: neo4j://localhost:7687
  user: neo4j
serve:
  port: 9000
  graceful_timeout: 5s
discovery:
  endpoints: [localhost:2379]
  ttl: 15
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.True(t, cfg.Preferences.FreezeGraphView)
	assert.Equal(t, 200, cfg.Generator.N)
	require.NotNil(t, cfg.Generator.Seed)
	assert.Equal(t, uint64(42), *cfg.Generator.Seed)
	assert.Equal(t, 250*time.Millisecond, cfg.Queue.GetPollTimeout())
	assert.Equal(t, queue.DefaultList, cfg.Queue.GetList())
	assert.Equal(t, 9000, cfg.Serve.GetPort())
	assert.Equal(t, 5*time.Second, cfg.Serve.GetGracefulTimeout())
	assert.Equal(t, "neo4j", cfg.Neo4j.User)
	require.NotNil(t, cfg.Discovery)
	assert.Equal(t, []string{"localhost:2379"}, cfg.Discovery.Endpoints)
	assert.Equal(t, 15, cfg.Discovery.TTL)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("log: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad log level", "log:\n  level: loud\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"negative n", "generator:\n  n: -1\n"},
		{"queue without url", "queue:\n  list: x\n"},
		{"neo4j bad uri", "neo4j:\n  uri: not a uri\n"},
		{"port out of range", "serve:\n  port: 70000\n"},
		{"tls cert without key", "serve:\n  tls_cert_file: cert.pem\n"},
		{"etcd without endpoints", "catalog:\n  etcd:\n    prefix: /x/\n"},
		{"discovery without endpoints", "discovery:\n  namespace: lab\n"},
		{"discovery ttl too short", "discovery:\n  endpoints: [a:2379]\n  ttl: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			err = cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, plugin.ErrInvalidConfig)
		})
	}

	t.Run("empty config is valid", func(t *testing.T) {
		assert.NoError(t, (&Config{}).Validate())
	})
}

func TestDefaults(t *testing.T) {
	var cfg Config
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
	assert.Equal(t, time.Second, cfg.Queue.GetPollTimeout())
	assert.Equal(t, queue.DefaultList, cfg.Queue.GetList())
	assert.Equal(t, 50051, cfg.Serve.GetPort())
	assert.Equal(t, 30*time.Second, cfg.Serve.GetGracefulTimeout())
	assert.Equal(t, taxonomy.DefaultEtcdPrefix, cfg.Catalog.Etcd.GetPrefix())
	assert.Equal(t, 5*time.Second, cfg.Catalog.Etcd.GetDialTimeout())

	bad := &ServeConfig{GracefulTimeout: "soon"}
	assert.Equal(t, 30*time.Second, bad.GetGracefulTimeout())
}

func TestLogConfig_Logger(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Level: "warn", Format: "json"}.Logger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	LogConfig{Level: "warn", Format: "json"}.Logger(&buf).Warn("shown", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	LogConfig{Format: "text"}.Logger(&buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestGeneratorConfig_Apply(t *testing.T) {
	base := prefattach.DefaultConfig(taxonomy.Default())

	same := GeneratorConfig{}.Apply(base)
	assert.Equal(t, base, same)

	seed := uint64(7)
	got := GeneratorConfig{N: 50, M: 2, RandomWeights: true, TransactionTypes: []string{"Communication"}, Seed: &seed}.Apply(base)
	assert.Equal(t, 50, got.N)
	assert.Equal(t, 2, got.M)
	assert.True(t, got.RandomWeights)
	assert.Equal(t, base.VertexTypes, got.VertexTypes)
	assert.Equal(t, []string{"Communication"}, got.TransactionTypes)
	assert.Equal(t, &seed, got.Seed)
}

func TestSplitConfig_Options(t *testing.T) {
	opts := SplitConfig{Delimiter: "."}.Options()
	assert.Equal(t, ".", opts.Delimiter)
	assert.Equal(t, splitnodes.DefaultTransactionType, opts.TransactionType)
	assert.False(t, opts.AllOccurrences)
}

func TestCatalogConfig_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("built-in", func(t *testing.T) {
		cat, err := CatalogConfig{}.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, taxonomy.Default().Len(), cat.Len())
	})

	t.Run("file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "types.yaml", `
vertex_types:
  - name: Router
transaction_types:
  - name: Peering
`)
		cat, err := CatalogConfig{File: path}.Load(ctx)
		require.NoError(t, err)
		_, ok := cat.Lookup(taxonomy.CategoryVertex, "Router")
		assert.True(t, ok)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := CatalogConfig{File: filepath.Join(t.TempDir(), "nope.yaml")}.Load(ctx)
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)
	assert.Error(t, err)

	writeFile(t, dir, "graphkit.yml", "generator:\n  n: 12\n")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Generator.N)

	path := writeFile(t, dir, "graphkit.yaml", "generator:\n  n: 13\n")
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 13, cfg.Generator.N, "graphkit.yaml is preferred")

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 13, cfg.Generator.N)
}

func TestLoadFromDir_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "graphkit.yaml", "split:\n  delimiter: \"-\"\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := LoadFromDir(nested)
	require.NoError(t, err)
	assert.Equal(t, "-", cfg.Split.Delimiter)
}

func TestLoadDefault_Env(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.yaml", "neo4j:\n  uri: neo4j://db:7687\n")
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvRedisURL, "redis://cache:6379/2")
	t.Setenv(EnvNeo4jURI, "")
	t.Setenv(EnvNeo4jUser, "reader")
	t.Setenv(EnvNeo4jPassword, "secret")

	cfg, err := LoadDefault()
	require.NoError(t, err)
	require.NotNil(t, cfg.Queue)
	assert.Equal(t, "redis://cache:6379/2", cfg.Queue.RedisURL)
	assert.Equal(t, "neo4j://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, "reader", cfg.Neo4j.User)
	assert.Equal(t, "secret", cfg.Neo4j.Password)

	opts := cfg.Queue.RedisOptions(nil)
	assert.Equal(t, "redis://cache:6379/2", opts.URL)
	assert.Equal(t, time.Second, opts.PollTimeout)
}

func TestLoadDefault_InvalidEnv(t *testing.T) {
	t.Setenv(EnvConfig, writeFile(t, t.TempDir(), "graphkit.yaml", "{}\n"))
	t.Setenv(EnvNeo4jURI, "::bad::")

	_, err := LoadDefault()
	assert.ErrorIs(t, err, plugin.ErrInvalidConfig)
}
