package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/types"
)

// Host serves a plugin registry over the HostServer interface. Every query
// sees the host graph and preferences in its context. Queries are run one
// at a time since plugins assume they are the only writer of the graph.
type Host struct {
	registry *plugin.Registry
	sink     graph.Sink
	prefs    plugin.Preferences
	logger   *slog.Logger

	mu sync.Mutex
}

var _ HostServer = (*Host)(nil)

// NewHost returns a host for registry writing into sink. sink may be nil for
// hosts whose plugins only return records.
func NewHost(registry *plugin.Registry, sink graph.Sink, prefs plugin.Preferences, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Host{registry: registry, sink: sink, prefs: prefs, logger: logger}
}

// Register adds the host service to srv and marks it and every plugin as
// serving on the health service.
func (h *Host) Register(srv *Server) {
	RegisterHostServer(srv.GRPCServer(), h)
	srv.HealthServer().SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	h.UpdateHealth(context.Background(), srv)
}

// UpdateHealth copies each plugin's health onto the gRPC health service
// under the plugin name.
func (h *Host) UpdateHealth(ctx context.Context, srv *Server) {
	for _, name := range h.registry.Names() {
		p, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		state := grpc_health_v1.HealthCheckResponse_SERVING
		if p.Health(ctx).IsUnhealthy() {
			state = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		srv.HealthServer().SetServingStatus(name, state)
	}
}

// ListPlugins implements HostServer.
func (h *Host) ListPlugins(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	plugins, err := jsonValue(h.registry.Descriptors())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode descriptors: %v", err)
	}
	return structOf(map[string]any{"plugins": plugins})
}

// Query implements HostServer.
func (h *Host) Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()
	name, _ := fields["plugin"].(string)
	method, _ := fields["method"].(string)
	if name == "" || method == "" {
		return nil, status.Error(codes.InvalidArgument, "plugin and method are required")
	}
	params, _ := fields["params"].(map[string]any)

	traceID, _ := fields["trace_id"].(string)
	spanID, _ := fields["span_id"].(string)
	ctx = CreateParentContext(ctx, traceID, spanID)

	if ms, ok := fields["timeout_ms"].(float64); ok && ms > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}

	if h.sink != nil {
		ctx = plugin.WithSink(ctx, h.sink)
	}
	ctx = plugin.WithPreferences(ctx, h.prefs)
	ctx = plugin.WithInteraction(ctx, plugin.LogInteraction(h.logger, name))

	h.mu.Lock()
	result, err := h.registry.Query(ctx, name, method, params)
	h.mu.Unlock()
	if err != nil {
		h.logger.Warn("query failed", "plugin", name, "method", method, "error", err)
		return nil, toStatus(err)
	}

	value, err := jsonValue(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return structOf(map[string]any{"result": value})
}

// Health implements HostServer. An empty plugin name combines the health
// of every plugin.
func (h *Host) Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, _ := req.AsMap()["plugin"].(string)

	var hs types.HealthStatus
	if name == "" {
		var all []types.HealthStatus
		for _, n := range h.registry.Names() {
			p, err := h.registry.Get(n)
			if err != nil {
				continue
			}
			all = append(all, p.Health(ctx))
		}
		hs = types.Combine(all...)
	} else {
		p, err := h.registry.Get(name)
		if err != nil {
			return nil, toStatus(err)
		}
		hs = p.Health(ctx)
	}

	value, err := jsonValue(hs)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode health: %v", err)
	}
	m, _ := value.(map[string]any)
	return structOf(m)
}

// toStatus maps plugin error kinds onto gRPC codes.
func toStatus(err error) error {
	var pe *plugin.Error
	if !errors.As(err, &pe) {
		if errors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, err.Error())
		}
		return status.Error(codes.Unknown, err.Error())
	}
	switch pe.Kind {
	case plugin.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case plugin.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case plugin.KindConfiguration:
		return status.Error(codes.FailedPrecondition, err.Error())
	case plugin.KindInterrupted:
		if errors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, err.Error())
		}
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// jsonValue converts v into the plain maps, slices and scalars structpb
// accepts by way of its JSON encoding.
func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func structOf(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}

// Run serves registry with a Host until ctx is done or a signal stops it.
func Run(ctx context.Context, registry *plugin.Registry, sink graph.Sink, prefs plugin.Preferences, opts ...Option) error {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	srv, err := NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	NewHost(registry, sink, prefs, cfg.Logger).Register(srv)
	return srv.Serve(ctx)
}
