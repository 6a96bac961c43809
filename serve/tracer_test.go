package serve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestCreateParentContext(t *testing.T) {
	const (
		traceID = "0af7651916cd43dd8448eb211c80319c"
		spanID  = "b7ad6b7169203331"
	)

	t.Run("valid ids", func(t *testing.T) {
		ctx := CreateParentContext(context.Background(), traceID, spanID)
		sc := trace.SpanContextFromContext(ctx)
		require.True(t, sc.IsValid())
		assert.True(t, sc.IsRemote())
		assert.True(t, sc.IsSampled())
		assert.Equal(t, traceID, sc.TraceID().String())
		assert.Equal(t, spanID, sc.SpanID().String())
	})

	tests := []struct {
		name    string
		traceID string
		spanID  string
	}{
		{"empty trace id", "", spanID},
		{"empty span id", traceID, ""},
		{"malformed trace id", "xyz", spanID},
		{"short span id", traceID, "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := CreateParentContext(context.Background(), tt.traceID, tt.spanID)
			assert.False(t, trace.SpanContextFromContext(ctx).IsValid())
		})
	}
}

func TestNewTracerProvider(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := NewTracerProvider(context.Background(), "graphkit-test", sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	parent := CreateParentContext(context.Background(), "0af7651916cd43dd8448eb211c80319c", "b7ad6b7169203331")
	_, span := tp.Tracer("test").Start(parent, "child")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "b7ad6b7169203331", spans[0].Parent.SpanID().String())

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "graphkit-test", service)
}
