// Package publisher emits report lifecycle events onto a Redis stream. The
// websocket server tails the stream to push notifications to subscribers.
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportStream is the stream carrying report-generated events.
const ReportStream = "replays.reports"

// streamMaxLen keeps the stream bounded; consumers only care about recent
// events.
const streamMaxLen = 1000

// ReportEvent is one report lifecycle notification.
type ReportEvent struct {
	MatchID     string    `json:"match_id"`
	TeamCount   int       `json:"team_count"`
	TurnCount   int       `json:"turn_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// RedisPublisher publishes events to Redis streams
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a new Redis stream publisher
func NewRedisPublisher(redisURL string) (*RedisPublisher, error) {
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

	return &RedisPublisher{
		client: client,
	}, nil
}

// Close closes the Redis connection
func (rp *RedisPublisher) Close() error {
	return rp.client.Close()
}

// Client returns the underlying Redis client.
func (rp *RedisPublisher) Client() *redis.Client {
	return rp.client
}

// PublishReportGenerated announces a freshly generated report.
func (rp *RedisPublisher) PublishReportGenerated(ctx context.Context, event ReportEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return rp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: ReportStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event": "report.generated",
			"data":  string(data),
		},
	}).Err()
}
