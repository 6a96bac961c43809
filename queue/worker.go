package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/recordstore"
)

const instrumentationName = "github.com/zero-day-ai/graphkit/queue"

// Submit pushes store onto list as a new batch and returns the batch id.
// Subscribe to ResultChannel(id) before submitting to be sure of seeing the
// result.
func Submit(ctx context.Context, c Client, list, source string, store *recordstore.Store) (string, error) {
	if store == nil {
		return "", errors.New("nil record store")
	}
	batch := Batch{
		ID:          uuid.NewString(),
		Source:      source,
		Records:     store.Plain(),
		SubmittedAt: time.Now().UnixMilli(),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		batch.TraceID = sc.TraceID().String()
		batch.SpanID = sc.SpanID().String()
	}
	if err := c.Push(ctx, list, batch); err != nil {
		return "", err
	}
	return batch.ID, nil
}

// Worker merges batches popped from a list into one graph. A Worker is the
// single writer of its sink.
type Worker struct {
	client Client
	sink   graph.Sink
	list   string
	id     string
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithList sets the list to pop batches from.
func WithList(list string) WorkerOption {
	return func(w *Worker) { w.list = list }
}

// WithWorkerID sets the id used for heartbeats and results.
func WithWorkerID(id string) WorkerOption {
	return func(w *Worker) { w.id = id }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

// WithTracer sets the tracer for merge spans.
func WithTracer(tracer trace.Tracer) WorkerOption {
	return func(w *Worker) { w.tracer = tracer }
}

// NewWorker returns a worker merging into sink.
func NewWorker(client Client, sink graph.Sink, opts ...WorkerOption) *Worker {
	w := &Worker{
		client: client,
		sink:   sink,
		list:   DefaultList,
		id:     "worker-" + uuid.NewString()[:8],
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer(instrumentationName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the worker id.
func (w *Worker) ID() string { return w.id }

// Run pops and merges batches until ctx is done. A heartbeat is kept while
// it runs. Cancellation is a clean stop and returns nil.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("merge worker started", "worker", w.id, "list", w.list)
	defer w.logger.Info("merge worker stopped", "worker", w.id)

	hbCtx, stop := context.WithCancel(ctx)
	defer stop()
	go w.heartbeat(hbCtx)

	for {
		_, err := w.ProcessNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (w *Worker) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(HeartbeatTTL / 3)
	defer ticker.Stop()
	for {
		if err := w.client.Heartbeat(ctx, w.id); err != nil && ctx.Err() == nil {
			w.logger.Warn("heartbeat failed", "worker", w.id, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessNext pops one batch, merges it and publishes the result. Merge
// failures are reported in the published result, not as an error.
func (w *Worker) ProcessNext(ctx context.Context) (Result, error) {
	batch, err := w.client.Pop(ctx, w.list)
	if err != nil {
		return Result{}, err
	}
	result := w.Process(ctx, batch)
	if err := w.client.Publish(ctx, ResultChannel(batch.ID), result); err != nil {
		return result, err
	}
	return result, nil
}

// Process merges one batch into the worker's sink.
func (w *Worker) Process(ctx context.Context, batch *Batch) Result {
	result := Result{BatchID: batch.ID, WorkerID: w.id, StartedAt: w.now().UnixMilli()}

	var opts []trace.SpanStartOption
	opts = append(opts, trace.WithAttributes(
		attribute.String("graphkit.batch_id", batch.ID),
		attribute.String("graphkit.batch_source", batch.Source),
		attribute.Int("graphkit.batch_records", len(batch.Records)),
	))
	if link, ok := producerLink(batch); ok {
		opts = append(opts, trace.WithLinks(link))
	}
	ctx, span := w.tracer.Start(ctx, "queue.merge", opts...)
	defer span.End()

	merged, err := w.merge(ctx, batch)
	result.Records = merged.Records
	result.VerticesAdded = merged.VerticesAdded
	result.VerticesReused = merged.VerticesReused
	result.TransactionsAdded = merged.TransactionsAdded
	result.CompletedAt = w.now().UnixMilli()

	if err != nil {
		result.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.logger.Warn("batch merge failed", "worker", w.id, "batch", batch.ID, "error", err)
		return result
	}
	w.logger.Debug("batch merged",
		"worker", w.id,
		"batch", batch.ID,
		"source", batch.Source,
		"records", result.Records,
		"vertices_added", result.VerticesAdded,
		"transactions_added", result.TransactionsAdded)
	return result
}

func (w *Worker) merge(ctx context.Context, batch *Batch) (graph.MergeResult, error) {
	if err := batch.Validate(); err != nil {
		return graph.MergeResult{}, fmt.Errorf("invalid batch: %w", err)
	}
	store, err := batch.Store()
	if err != nil {
		return graph.MergeResult{}, fmt.Errorf("decode records: %w", err)
	}
	return graph.Merge(ctx, store, w.sink)
}

func producerLink(batch *Batch) (trace.Link, bool) {
	traceID, err := trace.TraceIDFromHex(batch.TraceID)
	if err != nil {
		return trace.Link{}, false
	}
	spanID, err := trace.SpanIDFromHex(batch.SpanID)
	if err != nil {
		return trace.Link{}, false
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.Link{SpanContext: sc}, true
}
