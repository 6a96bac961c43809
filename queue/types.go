package queue

import (
	"errors"
	"fmt"

	"github.com/zero-day-ai/graphkit/recordstore"
)

// DefaultList is the Redis list batches are pushed to when none is configured.
const DefaultList = "graphkit:merge:queue"

// ResultChannel returns the pub/sub channel a batch result is published on.
func ResultChannel(batchID string) string {
	return formatKeyName("graphkit", "merge", "results", batchID)
}

// Batch is one record store waiting to be merged into a graph.
type Batch struct {
	// ID is a UUID naming the batch and its result channel.
	ID string `json:"id"`

	// Source names the plugin that produced the records.
	Source string `json:"source"`

	// Records are the record store rows in order.
	Records []map[string]any `json:"records"`

	// TraceID and SpanID carry the producer's span for the worker.
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`

	// SubmittedAt is the Unix timestamp in milliseconds when the batch was pushed.
	SubmittedAt int64 `json:"submitted_at"`
}

// Validate reports whether the batch can be merged.
func (b *Batch) Validate() error {
	if b.ID == "" {
		return errors.New("batch id is required")
	}
	if b.Records == nil {
		return errors.New("records are required")
	}
	if b.SubmittedAt < 0 {
		return fmt.Errorf("submitted_at must be non-negative, got %d", b.SubmittedAt)
	}
	return nil
}

// Store decodes the batch rows into a record store.
func (b *Batch) Store() (*recordstore.Store, error) {
	return recordstore.FromValue(b.Records)
}

// Result is the outcome of merging one batch.
type Result struct {
	BatchID string `json:"batch_id"`

	// Records is the number of rows read from the batch.
	Records           int `json:"records"`
	VerticesAdded     int `json:"vertices_added"`
	VerticesReused    int `json:"vertices_reused"`
	TransactionsAdded int `json:"transactions_added"`

	// Error is set when the merge failed; counts then describe the rows
	// merged before the failure.
	Error string `json:"error,omitempty"`

	WorkerID    string `json:"worker_id"`
	StartedAt   int64  `json:"started_at"`
	CompletedAt int64  `json:"completed_at"`
}

// Failed reports whether the merge failed.
func (r Result) Failed() bool { return r.Error != "" }
