// Package health checks the external dependencies a graphkit process relies
// on: catalog and certificate files, Redis, Neo4j and etcd endpoints.
//
// Every check returns a types.HealthStatus so results can be folded with
// types.Combine or reported next to plugin health.
package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/graphkit/types"
)

// DefaultTimeout bounds a check whose context has no deadline.
const DefaultTimeout = 5 * time.Second

// Named pairs a check result with what was checked.
type Named struct {
	Name   string             `json:"name"`
	Status types.HealthStatus `json:"status"`
}

// Report folds named results into one status. Each failing check is listed
// under its name in Details.
func Report(checks ...Named) types.HealthStatus {
	statuses := make([]types.HealthStatus, len(checks))
	for i, c := range checks {
		statuses[i] = c.Status
	}
	out := types.Combine(statuses...)
	if out.Details == nil {
		return out
	}
	details := make(map[string]any, len(out.Details))
	for i, c := range checks {
		if !c.Status.IsHealthy() {
			details[c.Name] = c.Status.Message
		}
		delete(out.Details, strconv.Itoa(i))
	}
	out.Details = details
	return out
}

// NetworkCheck verifies that a TCP connection to host:port can be opened.
func NetworkCheck(ctx context.Context, host string, port int) types.HealthStatus {
	if host == "" {
		return types.NewUnhealthyStatus("host cannot be empty", nil)
	}
	if port <= 0 || port > 65535 {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("invalid port number: %d", port),
			map[string]any{"port": port},
		)
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{"host": host, "port": port, "error": err.Error()},
		)
	}
	conn.Close()
	return types.NewHealthyStatus(fmt.Sprintf("connected to %s", address))
}

// EndpointCheck runs NetworkCheck against the host and port of a URL such as
// redis://cache:6379 or neo4j://db. defaultPort is used when the URL has none.
// A bare host:port is accepted too.
func EndpointCheck(ctx context.Context, rawURL string, defaultPort int) types.HealthStatus {
	host, port, err := splitEndpoint(rawURL, defaultPort)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("invalid endpoint %q", rawURL),
			map[string]any{"error": err.Error()},
		)
	}
	return NetworkCheck(ctx, host, port)
}

func splitEndpoint(raw string, defaultPort int) (string, int, error) {
	hostport := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		hostport = u.Host
	}
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		// No port.
		if hostport == "" {
			return "", 0, fmt.Errorf("missing host")
		}
		return hostport, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

// FileCheck verifies that a file or directory exists at path.
func FileCheck(path string) types.HealthStatus {
	if path == "" {
		return types.NewUnhealthyStatus("path cannot be empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewUnhealthyStatus(
				fmt.Sprintf("path '%s' does not exist", path),
				map[string]any{"path": path},
			)
		}
		return types.NewUnhealthyStatus(
			fmt.Sprintf("failed to stat path '%s'", path),
			map[string]any{"path": path, "error": err.Error()},
		)
	}
	kind := "file"
	if info.IsDir() {
		kind = "directory"
	}
	return types.NewHealthyStatus(fmt.Sprintf("%s '%s' exists", kind, path))
}

// RedisCheck pings a Redis server.
func RedisCheck(ctx context.Context, client *redis.Client) types.HealthStatus {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		return types.NewUnhealthyStatus("redis ping failed",
			map[string]any{"addr": client.Options().Addr, "error": err.Error()})
	}
	return types.NewHealthyStatus(fmt.Sprintf("redis answered in %s", time.Since(start).Round(time.Millisecond)))
}

// Neo4jCheck verifies that driver can reach its server.
func Neo4jCheck(ctx context.Context, driver neo4j.DriverWithContext) types.HealthStatus {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		target := driver.Target()
		return types.NewUnhealthyStatus("neo4j unreachable",
			map[string]any{"target": target.String(), "error": err.Error()})
	}
	return types.NewHealthyStatus("neo4j reachable")
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
