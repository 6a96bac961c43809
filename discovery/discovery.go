// Package discovery announces running plugin hosts and merge workers in etcd
// so clients can find them.
//
// Every instance is stored as JSON under
// /<namespace>/<kind>/<name>/<instance-id> and attached to a lease. The lease
// is renewed every TTL/3 while the instance runs; when a process dies without
// deregistering, its entry disappears once the lease expires.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Instance kinds.
const (
	KindHost   = "host"
	KindWorker = "worker"
)

// Defaults.
const (
	DefaultNamespace = "graphkit"
	DefaultTTL       = 30
)

// ErrClosed is returned by every method once Close has been called.
var ErrClosed = errors.New("discovery registry is closed")

// Instance describes one running process.
type Instance struct {
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	InstanceID string `json:"instance_id"`

	// Endpoint is "host:port" for hosts. Workers have none.
	Endpoint string `json:"endpoint,omitempty"`

	// Plugins lists the plugin names a host serves.
	Plugins []string `json:"plugins,omitempty"`

	// Metadata holds free-form attributes such as the queue list a worker
	// pops from.
	Metadata map[string]string `json:"metadata,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// Etcd is the part of an etcd client the registry needs. *clientv3.Client
// satisfies it.
type Etcd interface {
	clientv3.KV
	clientv3.Lease
}

// Registry registers instances under leases and lists them.
// All methods are safe for concurrent use.
type Registry struct {
	etcd      Etcd
	namespace string
	ttl       int64
	logger    *slog.Logger

	mu      sync.Mutex
	leases  map[string]clientv3.LeaseID
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
	done    chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithNamespace sets the top-level key segment.
func WithNamespace(ns string) Option {
	return func(r *Registry) {
		if ns != "" {
			r.namespace = ns
		}
	}
}

// WithTTL sets the lease time-to-live in seconds.
func WithTTL(seconds int) Option {
	return func(r *Registry) {
		if seconds > 0 {
			r.ttl = int64(seconds)
		}
	}
}

// WithLogger sets the logger for keepalive failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New returns a registry on etcd. The caller keeps ownership of the etcd
// client.
func New(etcd Etcd, opts ...Option) *Registry {
	r := &Registry{
		etcd:      etcd,
		namespace: DefaultNamespace,
		ttl:       DefaultTTL,
		logger:    slog.New(slog.DiscardHandler),
		leases:    make(map[string]clientv3.LeaseID),
		cancels:   make(map[string]context.CancelFunc),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores info under a fresh lease and keeps the lease alive until
// Deregister or Close. Registering the same InstanceID again replaces the
// previous entry.
func (r *Registry) Register(ctx context.Context, info Instance) error {
	if info.Kind == "" || info.Name == "" || info.InstanceID == "" {
		return fmt.Errorf("instance kind, name and id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	if cancel, ok := r.cancels[info.InstanceID]; ok {
		cancel()
		delete(r.cancels, info.InstanceID)
	}

	lease, err := r.etcd.Grant(ctx, r.ttl)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}
	if _, err := r.etcd.Put(ctx, r.key(info.Kind, info.Name, info.InstanceID), string(data), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register instance: %w", err)
	}
	r.leases[info.InstanceID] = lease.ID

	kaCtx, cancel := context.WithCancel(context.Background())
	r.cancels[info.InstanceID] = cancel
	r.wg.Add(1)
	go r.keepalive(kaCtx, lease.ID, info.InstanceID)
	return nil
}

// Deregister revokes the lease of info, which deletes its entry. Unknown
// instances are ignored.
func (r *Registry) Deregister(ctx context.Context, info Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	if cancel, ok := r.cancels[info.InstanceID]; ok {
		cancel()
		delete(r.cancels, info.InstanceID)
	}
	lease, ok := r.leases[info.InstanceID]
	if !ok {
		return nil
	}
	delete(r.leases, info.InstanceID)
	if _, err := r.etcd.Revoke(ctx, lease); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	return nil
}

// Discover lists the registered instances of kind. An empty name lists every
// instance of the kind. Entries that do not decode are skipped.
func (r *Registry) Discover(ctx context.Context, kind, name string) ([]Instance, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	prefix := fmt.Sprintf("/%s/%s/", r.namespace, kind)
	if name != "" {
		prefix += name + "/"
	}
	resp, err := r.etcd.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover instances: %w", err)
	}

	out := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var info Instance
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			r.logger.Debug("skipping undecodable instance", "key", string(kv.Key), "error", err)
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// Close stops every keepalive and revokes the remaining leases. It does not
// close the etcd client.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
	leases := r.leases
	r.leases = nil
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var errs []error
	for _, id := range leases {
		if _, err := r.etcd.Revoke(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) keepalive(ctx context.Context, lease clientv3.LeaseID, instanceID string) {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Duration(r.ttl) * time.Second / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			if _, err := r.etcd.KeepAliveOnce(ctx, lease); err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Warn("lease keepalive failed", "instance_id", instanceID, "error", err)
				r.mu.Lock()
				if r.leases[instanceID] == lease {
					delete(r.leases, instanceID)
					if cancel, ok := r.cancels[instanceID]; ok {
						cancel()
						delete(r.cancels, instanceID)
					}
				}
				r.mu.Unlock()
				return
			}
		}
	}
}

func (r *Registry) key(kind, name, instanceID string) string {
	return fmt.Sprintf("/%s/%s/%s/%s", r.namespace, kind, name, instanceID)
}
