// Package component loads graphkit.yaml, the configuration shared by the
// command line tool, the plugin host and the merge worker.
package component

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/graphkit/discovery"
	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/prefattach"
	"github.com/zero-day-ai/graphkit/queue"
	"github.com/zero-day-ai/graphkit/splitnodes"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

// Environment variables read by LoadDefault and ApplyEnv.
const (
	EnvConfig        = "GRAPHKIT_CONFIG"
	EnvRedisURL      = "GRAPHKIT_REDIS_URL"
	EnvNeo4jURI      = "GRAPHKIT_NEO4J_URI"
	EnvNeo4jUser     = "GRAPHKIT_NEO4J_USER"
	EnvNeo4jPassword = "GRAPHKIT_NEO4J_PASSWORD"
)

// Errors for sections a command needs but the configuration leaves out.
var (
	ErrQueueNotConfigured     = errors.New("queue is not configured; set queue.redis_url or $" + EnvRedisURL)
	ErrNeo4jNotConfigured     = errors.New("neo4j is not configured; set neo4j.uri or $" + EnvNeo4jURI)
	ErrDiscoveryNotConfigured = errors.New("discovery is not configured; set discovery.endpoints")
)

// FileNames are the names Load looks for inside a directory, in order.
var FileNames = []string{"graphkit.yaml", "graphkit.yml"}

// Config represents a graphkit.yaml file.
type Config struct {
	Log         LogConfig          `yaml:"log"`
	Catalog     CatalogConfig      `yaml:"catalog"`
	Preferences plugin.Preferences `yaml:"preferences"`
	Generator   GeneratorConfig    `yaml:"generator"`
	Split       SplitConfig        `yaml:"split"`

	Queue *QueueConfig `yaml:"queue,omitempty" validate:"omitempty"`
	Neo4j *Neo4jConfig `yaml:"neo4j,omitempty" validate:"omitempty"`
	Serve *ServeConfig `yaml:"serve,omitempty" validate:"omitempty"`

	// Discovery announces hosts and workers in etcd when set.
	Discovery *discovery.Config `yaml:"discovery,omitempty" validate:"omitempty"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=json text"`
}

// SlogLevel returns the configured level, Info by default.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a logger writing to w. JSON is the default format.
func (l LogConfig) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// CatalogConfig says where semantic types come from. File wins over etcd;
// with neither the built-in catalog is used.
type CatalogConfig struct {
	File string      `yaml:"file,omitempty"`
	Etcd *EtcdConfig `yaml:"etcd,omitempty" validate:"omitempty"`
}

// EtcdConfig locates a catalog stored in etcd.
type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints" validate:"min=1,dive,required"`
	Prefix    string   `yaml:"prefix,omitempty"`

	// DialTimeout is a Go duration string. Default: 5s
	DialTimeout string `yaml:"dial_timeout,omitempty"`
}

// GetPrefix returns the key prefix or taxonomy.DefaultEtcdPrefix.
func (e *EtcdConfig) GetPrefix() string {
	if e == nil || e.Prefix == "" {
		return taxonomy.DefaultEtcdPrefix
	}
	return e.Prefix
}

// GetDialTimeout parses the dial timeout, falling back to 5s.
func (e *EtcdConfig) GetDialTimeout() time.Duration {
	return parseDuration(dialTimeout(e), 5*time.Second)
}

func dialTimeout(e *EtcdConfig) string {
	if e == nil {
		return ""
	}
	return e.DialTimeout
}

// Load returns the configured catalog.
func (c CatalogConfig) Load(ctx context.Context) (*taxonomy.Catalog, error) {
	switch {
	case c.File != "":
		return taxonomy.LoadFile(c.File)
	case c.Etcd != nil:
		client, err := clientv3.New(clientv3.Config{
			Endpoints:   c.Etcd.Endpoints,
			DialTimeout: c.Etcd.GetDialTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("connect to etcd: %w", err)
		}
		defer client.Close()
		return taxonomy.LoadEtcd(ctx, client, c.Etcd.GetPrefix())
	default:
		return taxonomy.Default(), nil
	}
}

// GeneratorConfig holds defaults for the preferential attachment generator.
// Zero values leave the built-in defaults in place.
type GeneratorConfig struct {
	N                int      `yaml:"n,omitempty" validate:"omitempty,gte=1"`
	M                int      `yaml:"m,omitempty" validate:"omitempty,gte=1"`
	RandomWeights    bool     `yaml:"random_weights,omitempty"`
	VertexTypes      []string `yaml:"vertex_types,omitempty" validate:"omitempty,dive,required"`
	TransactionTypes []string `yaml:"transaction_types,omitempty" validate:"omitempty,dive,required"`
	Seed             *uint64  `yaml:"seed,omitempty"`
}

// Apply overlays the configured values on base.
func (g GeneratorConfig) Apply(base prefattach.Config) prefattach.Config {
	if g.N > 0 {
		base.N = g.N
	}
	if g.M > 0 {
		base.M = g.M
	}
	if g.RandomWeights {
		base.RandomWeights = true
	}
	if len(g.VertexTypes) > 0 {
		base.VertexTypes = g.VertexTypes
	}
	if len(g.TransactionTypes) > 0 {
		base.TransactionTypes = g.TransactionTypes
	}
	if g.Seed != nil {
		base.Seed = g.Seed
	}
	return base
}

// SplitConfig holds defaults for the split transform.
type SplitConfig struct {
	Delimiter       string `yaml:"delimiter,omitempty"`
	TransactionType string `yaml:"transaction_type,omitempty"`
	AllOccurrences  bool   `yaml:"all_occurrences,omitempty"`
}

// Options returns the transform options, using the default link type when
// none is configured.
func (s SplitConfig) Options() splitnodes.Options {
	opts := splitnodes.Options{
		Delimiter:       s.Delimiter,
		TransactionType: s.TransactionType,
		AllOccurrences:  s.AllOccurrences,
	}
	if opts.TransactionType == "" {
		opts.TransactionType = splitnodes.DefaultTransactionType
	}
	return opts
}

// QueueConfig configures the Redis merge hand-off.
type QueueConfig struct {
	RedisURL string `yaml:"redis_url" validate:"required,url"`
	List     string `yaml:"list,omitempty"`

	// PollTimeout is a Go duration string. Default: 1s
	PollTimeout string `yaml:"poll_timeout,omitempty"`
}

// GetList returns the list name or the queue default.
func (q *QueueConfig) GetList() string {
	if q == nil || q.List == "" {
		return queue.DefaultList
	}
	return q.List
}

// GetPollTimeout parses the poll timeout, falling back to 1s.
func (q *QueueConfig) GetPollTimeout() time.Duration {
	if q == nil {
		return time.Second
	}
	return parseDuration(q.PollTimeout, time.Second)
}

// RedisOptions returns connection options for queue.NewRedisClient.
func (q *QueueConfig) RedisOptions(logger *slog.Logger) queue.RedisOptions {
	return queue.RedisOptions{
		URL:         q.RedisURL,
		PollTimeout: q.GetPollTimeout(),
		Logger:      logger,
	}
}

// Neo4jConfig configures the Neo4j graph backend.
type Neo4jConfig struct {
	URI      string `yaml:"uri" validate:"required,url"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// Driver opens a driver for the configured server. Without a user the
// connection is unauthenticated.
func (n *Neo4jConfig) Driver() (neo4j.DriverWithContext, error) {
	auth := neo4j.NoAuth()
	if n.User != "" {
		auth = neo4j.BasicAuth(n.User, n.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(n.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return driver, nil
}

// ServeConfig configures the gRPC plugin host.
type ServeConfig struct {
	Port int `yaml:"port,omitempty" validate:"gte=0,lte=65535"`

	// GracefulTimeout is a Go duration string. Default: 30s
	GracefulTimeout string `yaml:"graceful_timeout,omitempty"`

	TLSCertFile string `yaml:"tls_cert_file,omitempty" validate:"required_with=TLSKeyFile"`
	TLSKeyFile  string `yaml:"tls_key_file,omitempty" validate:"required_with=TLSCertFile"`
}

// GetPort returns the port or 50051.
func (s *ServeConfig) GetPort() int {
	if s == nil || s.Port == 0 {
		return 50051
	}
	return s.Port
}

// GetGracefulTimeout parses the graceful timeout, falling back to 30s.
func (s *ServeConfig) GetGracefulTimeout() time.Duration {
	if s == nil {
		return 30 * time.Second
	}
	return parseDuration(s.GracefulTimeout, 30*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", plugin.ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	if url := os.Getenv(EnvRedisURL); url != "" {
		if c.Queue == nil {
			c.Queue = &QueueConfig{}
		}
		c.Queue.RedisURL = url
	}
	if uri := os.Getenv(EnvNeo4jURI); uri != "" {
		if c.Neo4j == nil {
			c.Neo4j = &Neo4jConfig{}
		}
		c.Neo4j.URI = uri
	}
	if c.Neo4j != nil {
		if user := os.Getenv(EnvNeo4jUser); user != "" {
			c.Neo4j.User = user
		}
		if pw := os.Getenv(EnvNeo4jPassword); pw != "" {
			c.Neo4j.Password = pw
		}
	}
}

// Parse decodes and validates a graphkit.yaml document.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// Load reads a graphkit.yaml file. If path is a directory, it looks for one
// of FileNames inside it.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range FileNames {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("no %s found in %s", strings.Join(FileNames, " or "), path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadFromDir searches for graphkit.yaml starting from dir and walking up
// to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}
		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("no graphkit.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

// LoadDefault loads the file named by GRAPHKIT_CONFIG or, when unset, the
// nearest graphkit.yaml above the working directory. Without any file an
// empty configuration is used. Environment overrides are applied and the
// result is validated.
func LoadDefault() (*Config, error) {
	var config *Config
	if path := os.Getenv(EnvConfig); path != "" {
		c, err := Load(path)
		if err != nil {
			return nil, err
		}
		config = c
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		if c, err := LoadFromDir(cwd); err == nil {
			config = c
		} else {
			config = &Config{}
		}
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
