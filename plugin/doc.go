// Package plugin defines how analytic operations are packaged and invoked.
//
// A plugin is built from a Config, exposes named methods with JSON schemas
// for their parameters and results, and is looked up by the host through an
// immutable Registry:
//
//	cfg := plugin.NewConfig()
//	cfg.SetName("split-nodes")
//	cfg.SetVersion("1.0.0")
//	cfg.AddMethod("split", "Split identifiers on a delimiter", handler,
//		schema.Object(map[string]schema.JSON{"delimiter": schema.String()}, "delimiter"),
//		schema.Object(nil))
//	p, err := plugin.New(cfg)
//
// Everything a method needs from its host travels in the context: the graph
// to mutate (WithSink), where to report progress (WithInteraction) and the
// host preferences read once per invocation (WithPreferences).
//
// # Errors
//
// Failures are returned as *Error values whose Kind says what went wrong.
// A validation error means nothing was changed. An interrupted error means
// the context was cancelled part way through and whatever was written before
// the cancellation stays in the graph:
//
//	_, err := p.Query(ctx, "build", params)
//	switch {
//	case plugin.IsValidation(err):
//		// fix the parameters
//	case plugin.IsInterrupted(err):
//		// a prefix of the work was done
//	}
package plugin
