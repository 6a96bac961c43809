package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/recordstore"
)

func splitProposals() *recordstore.Store {
	store := recordstore.New()
	store.Append(recordstore.Record{
		recordstore.SourceIdentifier:      "mail",
		recordstore.DestinationIdentifier: "example.com",
		recordstore.TransactionType:       "Correlation",
	})
	store.Append(recordstore.Record{
		recordstore.SourceIdentifier:      "mail",
		recordstore.DestinationIdentifier: "example.org",
		recordstore.TransactionType:       "Correlation",
	})
	return store
}

func TestSubmitAndProcessNext(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := Submit(ctx, client, DefaultList, "split-nodes", splitProposals())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	g := graph.NewMemoryGraph()
	w := NewWorker(client, g, WithWorkerID("w1"))

	result, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, result.BatchID)
	assert.Equal(t, "w1", result.WorkerID)
	assert.False(t, result.Failed())
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, 2, result.TransactionsAdded)
	assert.Equal(t, 3, g.VertexCount(), "the shared left fragment is merged once")
	assert.Equal(t, 2, g.TransactionCount())
}

func TestSubmit_NilStore(t *testing.T) {
	client, _ := setupTestClient(t)
	_, err := Submit(context.Background(), client, DefaultList, "x", nil)
	assert.Error(t, err)
}

func TestWorker_ProcessReportsFailure(t *testing.T) {
	w := NewWorker(nil, graph.NewMemoryGraph(), WithWorkerID("w1"))

	result := w.Process(context.Background(), &Batch{ID: "b1"})
	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "invalid batch")
	assert.Equal(t, "b1", result.BatchID)
}

func TestWorker_Run(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g := graph.NewMemoryGraph()
	w := NewWorker(client, g, WithWorkerID("w1"), WithList("graphkit:test"))

	done := make(chan error, 1)
	runCtx, stop := context.WithCancel(ctx)
	go func() { done <- w.Run(runCtx) }()

	// Subscribe before submitting so the result cannot be missed.
	batch := Batch{ID: "b1", Source: "test", Records: splitProposals().Plain(), SubmittedAt: time.Now().UnixMilli()}
	results, err := client.Subscribe(ctx, ResultChannel(batch.ID))
	require.NoError(t, err)
	require.NoError(t, client.Push(ctx, "graphkit:test", batch))

	select {
	case res := <-results:
		assert.Equal(t, "b1", res.BatchID)
		assert.Equal(t, 2, res.TransactionsAdded)
	case <-ctx.Done():
		t.Fatal("timeout waiting for merge result")
	}

	assert.Eventually(t, func() bool {
		alive, err := client.Alive(ctx, "w1")
		return err == nil && alive
	}, 2*time.Second, 10*time.Millisecond)

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_LinksProducerSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	tracer := provider.Tracer("test")

	client, _ := setupTestClient(t)
	ctx, span := tracer.Start(context.Background(), "produce")
	_, err := Submit(ctx, client, DefaultList, "split-nodes", splitProposals())
	require.NoError(t, err)
	span.End()

	w := NewWorker(client, graph.NewMemoryGraph(), WithTracer(tracer))
	_, err = w.ProcessNext(context.Background())
	require.NoError(t, err)

	var merge *tracetest.SpanStub
	spans := exporter.GetSpans()
	for i := range spans {
		if spans[i].Name == "queue.merge" {
			merge = &spans[i]
		}
	}
	require.NotNil(t, merge)
	require.Len(t, merge.Links, 1)
	assert.Equal(t, span.SpanContext().TraceID(), merge.Links[0].SpanContext.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), merge.Links[0].SpanContext.SpanID())
}
