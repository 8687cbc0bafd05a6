package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig locates the queue an external push worker consumes.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QueueKey string
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return rdb, nil
}

// RedisDispatcher LPUSHes JSON notifications onto a list.
type RedisDispatcher struct {
	client   *redis.Client
	queueKey string
}

// NewRedisDispatcher creates a RedisDispatcher
func NewRedisDispatcher(client *redis.Client, queueKey string) *RedisDispatcher {
	return &RedisDispatcher{client: client, queueKey: queueKey}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return d.client.LPush(ctx, d.queueKey, data).Err()
}

// Pending returns how many notifications wait in the queue.
func (d *RedisDispatcher) Pending(ctx context.Context) (int64, error) {
	return d.client.LLen(ctx, d.queueKey).Result()
}
