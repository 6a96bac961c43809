// Package splitnodes decomposes vertex identifiers on a delimiter into a
// shared left fragment and one or more right fragments, proposing a typed
// link between them as record store rows.
package splitnodes

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/recordstore"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

// DefaultTransactionType labels the proposed link when none is chosen.
const DefaultTransactionType = taxonomy.TypeCorrelation

const instrumentationName = "github.com/zero-day-ai/graphkit/splitnodes"

// Pair is one split result. Left is shared by every pair of an identifier.
type Pair struct {
	Left  string
	Right string
}

// Split breaks text at delim. With all unset it splits at the first
// occurrence only; with all set every later piece pairs with the text before
// the first occurrence, and empty pieces between adjacent delimiters are
// dropped. Text without delim, or whose only delim is a suffix, yields nil.
func Split(text, delim string, all bool) []Pair {
	if delim == "" {
		return nil
	}
	i := strings.Index(text, delim)
	if i < 0 || i == len(text)-len(delim) {
		return nil
	}

	left, rest := text[:i], text[i+len(delim):]
	if !all {
		return []Pair{{Left: left, Right: rest}}
	}

	var pairs []Pair
	for _, piece := range strings.Split(rest, delim) {
		if piece == "" {
			continue
		}
		pairs = append(pairs, Pair{Left: left, Right: piece})
	}
	return pairs
}

// Options controls one Apply call.
type Options struct {
	// Delimiter is matched literally and must not be empty.
	Delimiter string

	// TransactionType labels every proposed link. DefaultTransactionType
	// is used when empty.
	TransactionType string

	// AllOccurrences splits on every occurrence instead of the first.
	AllOccurrences bool
}

// Transform turns identifier rows into split proposals.
type Transform struct {
	catalog *taxonomy.Catalog
	logger  *slog.Logger
	emitted metric.Int64Counter
}

// Option configures a Transform.
type Option func(*Transform)

// WithLogger sets the logger. Skipped rows are logged at Debug.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transform) { t.logger = logger }
}

// WithMeter records emitted rows on the graphkit.split.records counter.
func WithMeter(meter metric.Meter) Option {
	return func(t *Transform) {
		if c, err := meter.Int64Counter("graphkit.split.records",
			metric.WithDescription("Rows proposed by the split transform"),
			metric.WithUnit("{record}")); err == nil {
			t.emitted = c
		}
	}
}

// New returns a transform that types fragments with catalog. A nil catalog
// means taxonomy.Default().
func New(catalog *taxonomy.Catalog, opts ...Option) *Transform {
	if catalog == nil {
		catalog = taxonomy.Default()
	}
	t := &Transform{catalog: catalog, logger: slog.New(slog.DiscardHandler)}
	WithMeter(otel.Meter(instrumentationName))(t)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply reads every row of in and returns a new store with one row per
// split pair. Rows without a usable source.Identifier are skipped. in is
// never modified apart from its cursor.
func (t *Transform) Apply(ctx context.Context, in *recordstore.Store, opts Options) (*recordstore.Store, error) {
	const op = "splitnodes.Apply"
	if opts.Delimiter == "" {
		return nil, plugin.NewValidationError(op, errors.New("delimiter must not be empty"))
	}
	linkName := opts.TransactionType
	if linkName == "" {
		linkName = DefaultTransactionType
	}
	link := t.catalog.Resolve(taxonomy.CategoryTransaction, linkName)

	out := recordstore.New()
	row := 0
	in.Reset()
	for in.Next() {
		if err := ctx.Err(); err != nil {
			return out, plugin.NewInterruptedError(op, err)
		}
		row++

		text := in.GetString(recordstore.SourceIdentifier)
		pairs := Split(text, opts.Delimiter, opts.AllOccurrences)
		if len(pairs) == 0 {
			t.logger.Debug("skipping row", "row", row, "identifier", text)
			continue
		}

		sourceID := in.Get(recordstore.SourceID)
		for _, p := range pairs {
			t.emit(out, sourceID, p, link)
		}
	}

	if t.emitted != nil {
		t.emitted.Add(ctx, int64(out.Len()))
	}
	t.logger.Debug("split complete", "rows", row, "records", out.Len(), "all_occurrences", opts.AllOccurrences)
	return out, nil
}

func (t *Transform) emit(out *recordstore.Store, sourceID any, p Pair, link *taxonomy.SemanticType) {
	r := recordstore.Record{
		recordstore.SourceIdentifier:      p.Left,
		recordstore.DestinationIdentifier: p.Right,
		recordstore.TransactionType:       link,
	}
	if sourceID != nil {
		r[recordstore.SourceID] = sourceID
	}
	if typ, ok := t.catalog.BestMatch(taxonomy.CategoryVertex, p.Left); ok {
		r[recordstore.SourceType] = typ
	}
	if typ, ok := t.catalog.BestMatch(taxonomy.CategoryVertex, p.Right); ok {
		r[recordstore.DestinationType] = typ
	}
	out.Append(r)
}
