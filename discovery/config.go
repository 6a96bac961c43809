package discovery

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Config locates the etcd cluster instances are announced in.
type Config struct {
	Endpoints []string `yaml:"endpoints" validate:"min=1,dive,required"`

	// Namespace is the top-level key segment. Default: graphkit
	Namespace string `yaml:"namespace,omitempty"`

	// TTL is the lease time-to-live in seconds. Default: 30
	TTL int `yaml:"ttl,omitempty" validate:"omitempty,gte=3"`

	// DialTimeout is a Go duration string. Default: 5s
	DialTimeout string `yaml:"dial_timeout,omitempty"`

	TLS *TLSConfig `yaml:"tls,omitempty" validate:"omitempty"`
}

// TLSConfig enables mutual TLS towards etcd.
type TLSConfig struct {
	CertFile string `yaml:"cert_file" validate:"required"`
	KeyFile  string `yaml:"key_file" validate:"required"`
	CAFile   string `yaml:"ca_file" validate:"required"`
}

// Options returns the registry options matching c.
func (c *Config) Options() []Option {
	return []Option{WithNamespace(c.Namespace), WithTTL(c.TTL)}
}

// Dial connects to the configured cluster.
func (c *Config) Dial() (*clientv3.Client, error) {
	if len(c.Endpoints) == 0 {
		return nil, fmt.Errorf("discovery endpoints cannot be empty")
	}
	timeout := 5 * time.Second
	if d, err := time.ParseDuration(c.DialTimeout); err == nil && d > 0 {
		timeout = d
	}

	cfg := clientv3.Config{
		Endpoints:   c.Endpoints,
		DialTimeout: timeout,
	}
	if c.TLS != nil {
		tlsCfg, err := c.TLS.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		cfg.TLS = tlsCfg
	}

	cli, err := clientv3.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return cli, nil
}

// ClientConfig loads the certificates into a tls.Config.
func (t *TLSConfig) ClientConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}
	caData, err := os.ReadFile(t.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caData) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
