// Package cache wraps Redis for fast report retrieval. Reports are cached
// by match id, which is a content hash — an identical re-upload is served
// without re-running the pipeline.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportTTL bounds how long cached reports live; the archive remains the
// durable copy.
const ReportTTL = 24 * time.Hour

// RedisCache handles caching and fast state storage
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
	}, nil
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// SetReport caches a marshaled report by match id.
func (rc *RedisCache) SetReport(ctx context.Context, matchID string, report []byte) error {
	return rc.client.Set(ctx, reportKey(matchID), report, ReportTTL).Err()
}

// GetReport retrieves a cached report. A cache miss returns redis.Nil.
func (rc *RedisCache) GetReport(ctx context.Context, matchID string) ([]byte, error) {
	return rc.client.Get(ctx, reportKey(matchID)).Bytes()
}

// Delete removes keys
func (rc *RedisCache) Delete(ctx context.Context, matchIDs ...string) error {
	keys := make([]string, len(matchIDs))
	for i, id := range matchIDs {
		keys[i] = reportKey(id)
	}
	return rc.client.Del(ctx, keys...).Err()
}

func reportKey(matchID string) string {
	return "reports:" + matchID
}
