package serve

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the full gRPC name of the plugin host service.
const ServiceName = "graphkit.v1.PluginHost"

// Full method names.
const (
	MethodListPlugins = "/" + ServiceName + "/ListPlugins"
	MethodQuery       = "/" + ServiceName + "/Query"
	MethodHealth      = "/" + ServiceName + "/Health"
)

// HostServer is the server side of the plugin host service. Messages are
// google.protobuf.Struct so no generated code is needed.
//
// ListPlugins takes an empty struct and returns {"plugins": [descriptor...]}.
// Query takes {"plugin", "method", "params", "timeout_ms", "trace_id",
// "span_id"} and returns {"result": value}. Health takes {"plugin"} and
// returns {"status", "message", "details"}.
type HostServer interface {
	ListPlugins(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the plugin host service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HostServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPlugins", Handler: unaryHandler(MethodListPlugins, HostServer.ListPlugins)},
		{MethodName: "Query", Handler: unaryHandler(MethodQuery, HostServer.Query)},
		{MethodName: "Health", Handler: unaryHandler(MethodHealth, HostServer.Health)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "graphkit/v1/host.proto",
}

// RegisterHostServer registers srv on s.
func RegisterHostServer(s grpc.ServiceRegistrar, srv HostServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(HostServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(HostServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(HostServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// HostClient calls a remote plugin host.
type HostClient struct {
	cc grpc.ClientConnInterface
}

// NewHostClient returns a client using cc.
func NewHostClient(cc grpc.ClientConnInterface) *HostClient {
	return &HostClient{cc: cc}
}

func (c *HostClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPlugins returns the descriptors of every hosted plugin.
func (c *HostClient) ListPlugins(ctx context.Context, opts ...grpc.CallOption) ([]any, error) {
	out, err := c.invoke(ctx, MethodListPlugins, &structpb.Struct{}, opts...)
	if err != nil {
		return nil, err
	}
	return out.GetFields()["plugins"].GetListValue().AsSlice(), nil
}

// Query runs method of pluginName with params and returns the decoded
// result. Numbers in the result come back as float64.
func (c *HostClient) Query(ctx context.Context, pluginName, method string, params map[string]any, opts ...grpc.CallOption) (any, error) {
	plain, err := jsonValue(params)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{
		"plugin": pluginName,
		"method": method,
		"params": plain,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out, err := c.invoke(ctx, MethodQuery, req, opts...)
	if err != nil {
		return nil, err
	}
	return out.GetFields()["result"].AsInterface(), nil
}

// Health returns the health of one plugin, or of the host when pluginName
// is empty.
func (c *HostClient) Health(ctx context.Context, pluginName string, opts ...grpc.CallOption) (map[string]any, error) {
	req, err := structpb.NewStruct(map[string]any{"plugin": pluginName})
	if err != nil {
		return nil, err
	}
	out, err := c.invoke(ctx, MethodHealth, req, opts...)
	if err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
