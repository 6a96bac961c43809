package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a miniredis instance and returns a connected RedisClient.
func setupTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func testBatch(id string, identifiers ...string) Batch {
	records := make([]map[string]any, 0, len(identifiers))
	for _, ident := range identifiers {
		records = append(records, map[string]any{"source.Identifier": ident})
	}
	return Batch{ID: id, Source: "test", Records: records, SubmittedAt: 1}
}

func TestNewRedisClient(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := NewRedisClient(RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
		require.NoError(t, err)
		require.NotNil(t, client)
		defer client.Close()
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL:            "redis://localhost:99999",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestPushPop(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Push(ctx, DefaultList, testBatch("b1", "a-b")))
	require.NoError(t, client.Push(ctx, DefaultList, testBatch("b2", "c-d", "e-f")))

	n, err := client.Len(ctx, DefaultList)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := client.Pop(ctx, DefaultList)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "b1", first.ID)
	assert.Equal(t, []map[string]any{{"source.Identifier": "a-b"}}, first.Records)

	second, err := client.Pop(ctx, DefaultList)
	require.NoError(t, err)
	assert.Equal(t, "b2", second.ID)
	assert.Len(t, second.Records, 2)

	n, err = client.Len(ctx, DefaultList)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPush_RejectsInvalidBatch(t *testing.T) {
	client, mr := setupTestClient(t)

	tests := []struct {
		name  string
		batch Batch
	}{
		{name: "missing id", batch: Batch{Records: []map[string]any{}}},
		{name: "missing records", batch: Batch{ID: "b1"}},
		{name: "negative timestamp", batch: Batch{ID: "b1", Records: []map[string]any{}, SubmittedAt: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Push(context.Background(), DefaultList, tt.batch)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid batch")
		})
	}
	assert.False(t, mr.Exists(DefaultList))
}

func TestPop_UndecodablePayload(t *testing.T) {
	client, mr := setupTestClient(t)
	_, err := mr.Lpush(DefaultList, "not json")
	require.NoError(t, err)

	_, err = client.Pop(context.Background(), DefaultList)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal batch")
}

func TestPop_Cancelled(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Pop(ctx, DefaultList)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPublishSubscribe(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := ResultChannel("b1")
	results, err := client.Subscribe(ctx, channel)
	require.NoError(t, err)

	want := Result{BatchID: "b1", Records: 2, VerticesAdded: 3, TransactionsAdded: 2, WorkerID: "w1", StartedAt: 10, CompletedAt: 20}
	require.NoError(t, client.Publish(ctx, channel, want))

	select {
	case got := <-results:
		assert.Equal(t, want, got)
		assert.False(t, got.Failed())
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for result")
	}

	cancel()
	select {
	case _, ok := <-results:
		assert.False(t, ok, "channel closes when the context ends")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel was not closed")
	}
}

func TestHeartbeat(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	alive, err := client.Alive(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, alive)

	require.NoError(t, client.Heartbeat(ctx, "w1"))
	alive, err = client.Alive(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, HeartbeatTTL, mr.TTL("graphkit:worker:w1:health"))

	mr.FastForward(HeartbeatTTL + time.Second)
	alive, err = client.Alive(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestResultChannel(t *testing.T) {
	assert.Equal(t, "graphkit:merge:results:abc", ResultChannel("abc"))
}
