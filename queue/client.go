package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// HeartbeatTTL is how long a worker heartbeat stays visible.
const HeartbeatTTL = 30 * time.Second

// Client is the Redis side of the merge hand-off.
type Client interface {
	// Push adds a batch to the head of list (LPUSH).
	Push(ctx context.Context, list string, batch Batch) error

	// Pop removes the oldest batch from list (BRPOP), blocking until one is
	// available or ctx is done.
	Pop(ctx context.Context, list string) (*Batch, error)

	// Len returns the number of pending batches in list.
	Len(ctx context.Context, list string) (int64, error)

	// Publish sends a result to a pub/sub channel.
	Publish(ctx context.Context, channel string, result Result) error

	// Subscribe returns a channel receiving results published on channel
	// until ctx is done.
	Subscribe(ctx context.Context, channel string) (<-chan Result, error)

	// Heartbeat marks a worker as alive for HeartbeatTTL.
	Heartbeat(ctx context.Context, workerID string) error

	// Alive reports whether a worker heartbeat is current.
	Alive(ctx context.Context, workerID string) (bool, error)

	// Close closes the Redis connection.
	Close() error
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// PollTimeout bounds each BRPOP so a blocked Pop notices cancellation.
	PollTimeout time.Duration

	// Logger receives undecodable pub/sub payloads.
	Logger *slog.Logger
}

// RedisClient implements Client using go-redis/v9.
type RedisClient struct {
	client      *redis.Client
	logger      *slog.Logger
	pollTimeout time.Duration
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewClient(client, opts.Logger)
	if opts.PollTimeout > 0 {
		c.pollTimeout = opts.PollTimeout
	}
	return c, nil
}

// NewClient wraps an existing go-redis client.
func NewClient(client *redis.Client, logger *slog.Logger) *RedisClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisClient{client: client, logger: logger, pollTimeout: time.Second}
}

// Push adds a batch to the head of list.
func (c *RedisClient) Push(ctx context.Context, list string, batch Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}
	if err := c.client.LPush(ctx, list, data).Err(); err != nil {
		return fmt.Errorf("failed to push to list %s: %w", list, err)
	}
	return nil
}

// Pop removes the oldest batch from list.
func (c *RedisClient) Pop(ctx context.Context, list string) (*Batch, error) {
	var result []string
	for {
		// BRPOP returns [list, value], or redis.Nil when the poll times out
		var err error
		result, err = c.client.BRPop(ctx, c.pollTimeout, list).Result()
		if err == nil {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to pop from list %s: %w", list, err)
		}
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var batch Batch
	if err := json.Unmarshal([]byte(result[1]), &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return &batch, nil
}

// Len returns the number of pending batches in list.
func (c *RedisClient) Len(ctx context.Context, list string) (int64, error) {
	n, err := c.client.LLen(ctx, list).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read length of list %s: %w", list, err)
	}
	return n, nil
}

// Publish sends a result to a pub/sub channel.
func (c *RedisClient) Publish(ctx context.Context, channel string, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of results published on channel.
func (c *RedisClient) Subscribe(ctx context.Context, channel string) (<-chan Result, error) {
	pubsub := c.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	out := make(chan Result)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var result Result
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					c.logger.Warn("dropping undecodable result", "channel", channel, "error", err)
					continue
				}
				select {
				case out <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Heartbeat marks a worker as alive for HeartbeatTTL.
func (c *RedisClient) Heartbeat(ctx context.Context, workerID string) error {
	if err := c.client.Set(ctx, healthKey(workerID), "ok", HeartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for worker %s: %w", workerID, err)
	}
	return nil
}

// Alive reports whether a worker heartbeat is current.
func (c *RedisClient) Alive(ctx context.Context, workerID string) (bool, error) {
	n, err := c.client.Exists(ctx, healthKey(workerID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read heartbeat for worker %s: %w", workerID, err)
	}
	return n == 1, nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

func healthKey(workerID string) string {
	return formatKeyName("graphkit", "worker", workerID, "health")
}

func formatKeyName(parts ...string) string {
	return strings.Join(parts, ":")
}
