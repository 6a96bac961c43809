package splitnodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/recordstore"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		delim string
		all   bool
		want  []Pair
	}{
		{"first occurrence", "A-B-C", "-", false, []Pair{{"A", "B-C"}}},
		{"all occurrences share left", "A-B-C", "-", true, []Pair{{"A", "B"}, {"A", "C"}}},
		{"multi-character delimiter", "a::b::c", "::", false, []Pair{{"a", "b::c"}}},
		{"multi-character all", "a::b::c", "::", true, []Pair{{"a", "b"}, {"a", "c"}}},
		{"no delimiter", "abc", "-", false, nil},
		{"suffix only", "abc-", "-", false, nil},
		{"suffix only all", "abc-", "-", true, nil},
		{"multi-character suffix", "abc::", "::", true, nil},
		{"empty text", "", "-", true, nil},
		{"empty delimiter", "a-b", "", false, nil},
		{"adjacent delimiters", "a--b", "-", true, []Pair{{"a", "b"}}},
		{"trailing after first", "a-b-", "-", true, []Pair{{"a", "b"}}},
		{"trailing after first, first mode", "a-b-", "-", false, []Pair{{"a", "b-"}}},
		{"leading delimiter", "-a", "-", false, []Pair{{"", "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text, tt.delim, tt.all))
		})
	}
}

func TestSplit_SuffixAlwaysSkipped(t *testing.T) {
	for _, delim := range []string{"-", "@", "::", "."} {
		for _, stem := range []string{"a", "abc", "x y z"} {
			text := stem + delim
			assert.Nil(t, Split(text, delim, false), text)
			assert.Nil(t, Split(text, delim, true), text)
		}
	}
}

func TestSplit_SingleOccurrenceModesAgree(t *testing.T) {
	for _, text := range []string{"a-b", "alice@example.com", "x-"} {
		delim := "-"
		if text == "alice@example.com" {
			delim = "@"
		}
		assert.Equal(t, Split(text, delim, false), Split(text, delim, true), text)
	}
}

func inputStore(rows ...recordstore.Record) *recordstore.Store {
	s := recordstore.New()
	for _, r := range rows {
		s.Append(r)
	}
	return s
}

func TestTransform_Apply(t *testing.T) {
	ctx := context.Background()
	tr := New(nil)

	in := inputStore(
		recordstore.Record{recordstore.SourceID: 4, recordstore.SourceIdentifier: "alice@example.com"},
		recordstore.Record{recordstore.SourceID: 5, recordstore.SourceIdentifier: "no delimiter"},
		recordstore.Record{recordstore.SourceID: 6},
		recordstore.Record{recordstore.SourceID: 7, recordstore.SourceIdentifier: "trailing@"},
	)

	out, err := tr.Apply(ctx, in, Options{Delimiter: "@"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())

	out.Reset()
	require.True(t, out.Next())
	assert.Equal(t, 4, out.Get(recordstore.SourceID))
	assert.Equal(t, "alice", out.GetString(recordstore.SourceIdentifier))
	assert.Nil(t, out.Get(recordstore.SourceType), "plain words are untyped")
	assert.Equal(t, "example.com", out.GetString(recordstore.DestinationIdentifier))
	assert.Equal(t, taxonomy.TypeHostName, out.GetString(recordstore.DestinationType))
	assert.Equal(t, DefaultTransactionType, out.GetString(recordstore.TransactionType))

	assert.Equal(t, 4, in.Len(), "input is not modified")
}

func TestTransform_ApplyAllOccurrences(t *testing.T) {
	ctx := context.Background()
	tr := New(nil)
	in := inputStore(recordstore.Record{recordstore.SourceIdentifier: "A-B-C"})

	out, err := tr.Apply(ctx, in, Options{Delimiter: "-", AllOccurrences: true, TransactionType: taxonomy.TypeSimilarity})
	require.NoError(t, err)

	var got []Pair
	out.Reset()
	for out.Next() {
		got = append(got, Pair{out.GetString(recordstore.SourceIdentifier), out.GetString(recordstore.DestinationIdentifier)})
		assert.Equal(t, taxonomy.TypeSimilarity, out.GetString(recordstore.TransactionType))
		assert.Nil(t, out.Get(recordstore.SourceID), "no id to preserve")
	}
	assert.Equal(t, []Pair{{"A", "B"}, {"A", "C"}}, got)
}

func TestTransform_ApplyModesAgreeOnSingleOccurrence(t *testing.T) {
	ctx := context.Background()
	tr := New(nil)
	row := recordstore.Record{recordstore.SourceID: 1, recordstore.SourceIdentifier: "bob@10.0.0.1"}

	first, err := tr.Apply(ctx, inputStore(row), Options{Delimiter: "@"})
	require.NoError(t, err)
	all, err := tr.Apply(ctx, inputStore(row), Options{Delimiter: "@", AllOccurrences: true})
	require.NoError(t, err)

	assert.Equal(t, first.Records(), all.Records())
	require.Equal(t, 1, all.Len())
	all.Reset()
	require.True(t, all.Next())
	assert.Equal(t, taxonomy.TypeIPv4Address, all.GetString(recordstore.DestinationType))
}

func TestTransform_UnknownLinkType(t *testing.T) {
	out, err := New(nil).Apply(context.Background(),
		inputStore(recordstore.Record{recordstore.SourceIdentifier: "a-b"}),
		Options{Delimiter: "-", TransactionType: "Custom Link"})
	require.NoError(t, err)
	out.Reset()
	require.True(t, out.Next())
	typ, ok := out.Get(recordstore.TransactionType).(*taxonomy.SemanticType)
	require.True(t, ok)
	assert.Equal(t, "Custom Link", typ.Name)
	assert.True(t, typ.Incomplete)
}

func TestTransform_Errors(t *testing.T) {
	tr := New(nil)
	in := inputStore(recordstore.Record{recordstore.SourceIdentifier: "a-b"})

	_, err := tr.Apply(context.Background(), in, Options{})
	assert.True(t, plugin.IsValidation(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Apply(ctx, in, Options{Delimiter: "-"})
	assert.True(t, plugin.IsInterrupted(err))
}

func TestTransform_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tr := New(nil, WithMeter(provider.Meter("test")))
	in := inputStore(
		recordstore.Record{recordstore.SourceIdentifier: "a-b-c"},
		recordstore.Record{recordstore.SourceIdentifier: "d-e"},
	)
	_, err := tr.Apply(context.Background(), in, Options{Delimiter: "-", AllOccurrences: true})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "graphkit.split.records", m.Name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}
