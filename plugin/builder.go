package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/graphkit/schema"
	"github.com/zero-day-ai/graphkit/types"
)

const instrumentationName = "github.com/zero-day-ai/graphkit/plugin"

// MethodHandler runs one plugin method.
type MethodHandler func(ctx context.Context, params map[string]any) (any, error)

// InitFunc is called by Initialize.
type InitFunc func(ctx context.Context, config map[string]any) error

// ShutdownFunc is called by Shutdown.
type ShutdownFunc func(ctx context.Context) error

type methodEntry struct {
	descriptor MethodDescriptor
	handler    MethodHandler
}

// Config collects the pieces of a plugin. Create one with NewConfig, fill it
// with the setters and pass it to New.
type Config struct {
	name         string
	version      string
	description  string
	methods      []methodEntry
	initFunc     InitFunc
	shutdownFunc ShutdownFunc
	tracer       trace.Tracer
	logger       *slog.Logger
}

// NewConfig returns an empty configuration with no-op lifecycle hooks.
func NewConfig() *Config {
	return &Config{
		initFunc:     func(context.Context, map[string]any) error { return nil },
		shutdownFunc: func(context.Context) error { return nil },
	}
}

// SetName sets the plugin name.
func (c *Config) SetName(name string) { c.name = name }

// SetVersion sets the plugin version.
func (c *Config) SetVersion(version string) { c.version = version }

// SetDescription sets the plugin description.
func (c *Config) SetDescription(desc string) { c.description = desc }

// SetInitFunc sets the initialization hook.
func (c *Config) SetInitFunc(fn InitFunc) { c.initFunc = fn }

// SetShutdownFunc sets the shutdown hook.
func (c *Config) SetShutdownFunc(fn ShutdownFunc) { c.shutdownFunc = fn }

// SetTracer sets the tracer used for Query spans. The global tracer
// provider is used otherwise.
func (c *Config) SetTracer(tracer trace.Tracer) { c.tracer = tracer }

// SetLogger sets the logger. Logging is discarded otherwise.
func (c *Config) SetLogger(logger *slog.Logger) { c.logger = logger }

// AddMethod registers a method.
func (c *Config) AddMethod(name, description string, handler MethodHandler, input, output schema.JSON) {
	c.methods = append(c.methods, methodEntry{
		descriptor: MethodDescriptor{
			Name:         name,
			Description:  description,
			InputSchema:  input,
			OutputSchema: output,
		},
		handler: handler,
	})
}

// New builds a plugin from cfg.
func New(cfg *Config) (Plugin, error) {
	if cfg == nil {
		return nil, NewConfigurationError("plugin.New", errors.New("config is nil"))
	}
	if cfg.name == "" {
		return nil, NewConfigurationError("plugin.New", errors.New("name is required"))
	}
	if cfg.version == "" {
		return nil, NewConfigurationError("plugin.New", fmt.Errorf("%s: version is required", cfg.name))
	}

	byName := make(map[string]methodEntry, len(cfg.methods))
	for _, m := range cfg.methods {
		name := m.descriptor.Name
		if name == "" {
			return nil, NewConfigurationError("plugin.New", fmt.Errorf("%s: method name is empty", cfg.name))
		}
		if m.handler == nil {
			return nil, NewConfigurationError("plugin.New", fmt.Errorf("%s.%s: handler is nil", cfg.name, name))
		}
		if _, dup := byName[name]; dup {
			return nil, NewConfigurationError("plugin.New", fmt.Errorf("%s: duplicate method %s", cfg.name, name))
		}
		byName[name] = m
	}

	p := &builtPlugin{
		name:         cfg.name,
		version:      cfg.version,
		description:  cfg.description,
		methods:      cfg.methods,
		byName:       byName,
		initFunc:     cfg.initFunc,
		shutdownFunc: cfg.shutdownFunc,
		tracer:       cfg.tracer,
		logger:       cfg.logger,
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(instrumentationName)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p, nil
}

type builtPlugin struct {
	name         string
	version      string
	description  string
	methods      []methodEntry
	byName       map[string]methodEntry
	initFunc     InitFunc
	shutdownFunc ShutdownFunc
	tracer       trace.Tracer
	logger       *slog.Logger

	mu          sync.RWMutex
	initialized bool
	queries     atomic.Int64
	failures    atomic.Int64
}

func (p *builtPlugin) Name() string        { return p.name }
func (p *builtPlugin) Version() string     { return p.version }
func (p *builtPlugin) Description() string { return p.description }

func (p *builtPlugin) Methods() []MethodDescriptor {
	out := make([]MethodDescriptor, len(p.methods))
	for i, m := range p.methods {
		out[i] = m.descriptor
	}
	return out
}

// Query validates params, runs the handler inside a span named
// "plugin.<name>.<method>" and validates the result.
func (p *builtPlugin) Query(ctx context.Context, method string, params map[string]any) (any, error) {
	op := p.name + "." + method

	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.byName[method]
	if !ok {
		return nil, NewNotFoundError(op, fmt.Errorf("%w: %s", ErrMethodNotFound, method))
	}
	if params == nil {
		params = map[string]any{}
	}

	ctx, span := p.tracer.Start(ctx, "plugin."+op, trace.WithAttributes(
		attribute.String("plugin.name", p.name),
		attribute.String("plugin.version", p.version),
		attribute.String("plugin.method", method),
	))
	defer span.End()

	p.queries.Add(1)
	start := time.Now()
	result, err := p.invoke(ctx, op, entry, params)
	if err != nil {
		p.failures.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", KindOf(err)))
		p.logger.Warn("plugin query failed", "plugin", p.name, "method", method, "error", err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	p.logger.Debug("plugin query completed", "plugin", p.name, "method", method, "duration", time.Since(start))
	return result, nil
}

func (p *builtPlugin) invoke(ctx context.Context, op string, entry methodEntry, params map[string]any) (any, error) {
	if err := entry.descriptor.InputSchema.Validate(params); err != nil {
		return nil, NewValidationError(op, err)
	}

	result, err := entry.handler(ctx, params)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, NewInterruptedError(op, err)
		}
		return nil, NewExecutionError(op, err)
	}

	if err := entry.descriptor.OutputSchema.Validate(result); err != nil {
		return nil, NewExecutionError(op, fmt.Errorf("invalid output: %w", err))
	}
	return result, nil
}

func (p *builtPlugin) Initialize(ctx context.Context, config map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return NewConfigurationError(p.name+".Initialize", errors.New("already initialized"))
	}
	if err := p.initFunc(ctx, config); err != nil {
		return NewConfigurationError(p.name+".Initialize", err)
	}
	p.initialized = true
	return nil
}

func (p *builtPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return NewConfigurationError(p.name+".Shutdown", errors.New("not initialized"))
	}
	if err := p.shutdownFunc(ctx); err != nil {
		return NewExecutionError(p.name+".Shutdown", err)
	}
	p.initialized = false
	return nil
}

func (p *builtPlugin) Health(context.Context) types.HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	details := map[string]any{
		"queries":  p.queries.Load(),
		"failures": p.failures.Load(),
	}
	if !p.initialized {
		return types.NewUnhealthyStatus("plugin not initialized", details)
	}
	return types.HealthStatus{Status: types.StatusHealthy, Message: "plugin operational", Details: details}
}
