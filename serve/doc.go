// Package serve hosts a plugin registry over gRPC.
//
// The service graphkit.v1.PluginHost is declared by hand on top of
// google.protobuf.Struct messages, so neither side needs generated stubs.
// The standard gRPC health service is registered next to it and reports
// the host under ServiceName and each plugin under its own name.
//
// # Usage
//
//	reg, _ := plugin.NewRegistry(splitPlugin, generatorPlugin)
//	srv, err := serve.NewServer(&serve.Config{Port: 50051, GracefulTimeout: 30 * time.Second})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	serve.NewHost(reg, graph.NewMemoryGraph(), plugin.Preferences{}, logger).Register(srv)
//	err = srv.Serve(ctx)
//
// Or in one call:
//
//	err := serve.Run(ctx, reg, g, plugin.Preferences{}, serve.WithPort(50051))
//
// Plugin errors map onto status codes: validation to InvalidArgument,
// not_found to NotFound, configuration to FailedPrecondition, interrupted to
// Canceled or DeadlineExceeded, anything else to Internal.
package serve
