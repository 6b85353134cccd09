package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/config"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/report"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

// StreamDetections carries one entry per completed detection.
const StreamDetections = "detections:stream"

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// RedisCache wraps the Redis client for caching operations
type RedisCache struct {
	client    *redis.Client
	reportTTL time.Duration
}

// New creates a new Redis cache client
func New(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     50,
		MinIdleConns: 10,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, cfg.ReportCacheTTL), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client, reportTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, reportTTL: reportTTL}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// HealthCheck performs a Redis health check
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// GetReport returns the export payload cached under id
func (c *RedisCache) GetReport(ctx context.Context, id string) ([]byte, error) {
	val, err := c.client.Get(ctx, "report:"+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	payload, err := report.Decompress(val)
	if err != nil {
		return nil, fmt.Errorf("cache payload corrupt: %w", err)
	}
	return payload, nil
}

// SetReport caches an export payload, zstd-compressed, for the report TTL
func (c *RedisCache) SetReport(ctx context.Context, id string, payload []byte) error {
	err := c.client.Set(ctx, "report:"+id, report.Compress(payload), c.reportTTL).Err()
	if err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// CheckRateLimit is a fixed-window counter.
// Returns true if request is allowed, false if rate limited
func (c *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rateLimitKey := "ratelimit:" + key

	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit error: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire error: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// RecordDetection appends an event to the detections stream
func (c *RedisCache) RecordDetection(ctx context.Context, event store.DetectionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode detection event: %w", err)
	}
	err = c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamDetections,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("stream add error: %w", err)
	}
	return nil
}

// ReadDetections returns up to count of the oldest pending events and
// their stream IDs. Entries that fail to decode are returned in ids too
// so that Ack discards them.
func (c *RedisCache) ReadDetections(ctx context.Context, count int) (events []store.DetectionEvent, ids []string, err error) {
	if count <= 0 {
		count = 100
	}
	msgs, err := c.client.XRangeN(ctx, StreamDetections, "-", "+", int64(count)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, fmt.Errorf("stream read error: %w", err)
	}

	for _, msg := range msgs {
		ids = append(ids, msg.ID)
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var e store.DetectionEvent
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, ids, nil
}

// Ack deletes processed entries from the detections stream
func (c *RedisCache) Ack(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.client.XDel(ctx, StreamDetections, ids...).Err(); err != nil {
		return fmt.Errorf("stream delete error: %w", err)
	}
	return nil
}

// StreamLength reports how many events await flushing
func (c *RedisCache) StreamLength(ctx context.Context) (int64, error) {
	n, err := c.client.XLen(ctx, StreamDetections).Result()
	if err != nil {
		return 0, fmt.Errorf("stream length error: %w", err)
	}
	return n, nil
}
