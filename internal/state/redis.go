package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "geminibot:pending:"

// Redis keeps pending tags in Redis so they survive a restart
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a tracker on an existing client. A zero ttl keeps tags
// until they are consumed.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// OpenRedis creates a Redis client and pings it to validate the connection
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return c, nil
}

func key(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *Redis) Set(ctx context.Context, userID int64, tag Tag) error {
	if !tag.Valid() {
		return fmt.Errorf("invalid pending tag %q", tag)
	}
	if err := r.client.Set(ctx, key(userID), string(tag), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set pending tag: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, userID int64) (Tag, bool, error) {
	val, err := r.client.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return TagNone, false, nil
	}
	if err != nil {
		return TagNone, false, fmt.Errorf("failed to get pending tag: %w", err)
	}
	return Tag(val), true, nil
}

func (r *Redis) Take(ctx context.Context, userID int64) (Tag, bool, error) {
	val, err := r.client.GetDel(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return TagNone, false, nil
	}
	if err != nil {
		return TagNone, false, fmt.Errorf("failed to take pending tag: %w", err)
	}
	return Tag(val), true, nil
}

func (r *Redis) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear pending tag: %w", err)
	}
	return nil
}
