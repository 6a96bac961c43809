package serve

import (
	"log/slog"
	"net"
	"time"
)

// Option configures a Server.
type Option func(*Config)

// WithPort sets the TCP port. Use port 0 to pick a free port.
//
// Example:
//
//	serve.Run(ctx, reg, g, prefs, serve.WithPort(8080))
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithGracefulShutdown sets how long shutdown waits for active requests
// before forcing the server to stop.
func WithGracefulShutdown(timeout time.Duration) Option {
	return func(c *Config) {
		c.GracefulTimeout = timeout
	}
}

// WithTLS enables TLS with PEM-encoded certificate and key files. TLS stays
// disabled when either path is empty.
func WithTLS(certFile, keyFile string) Option {
	return func(c *Config) {
		c.TLSCertFile = certFile
		c.TLSKeyFile = keyFile
	}
}

// WithListener serves on lis instead of a TCP port.
func WithListener(lis net.Listener) Option {
	return func(c *Config) {
		c.Listener = lis
	}
}

// WithSignals controls whether SIGINT and SIGTERM stop the server.
func WithSignals(enabled bool) Option {
	return func(c *Config) {
		c.HandleSignals = enabled
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
