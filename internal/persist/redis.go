package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"logos-backend/internal/store"
)

// RedisSink persists snapshots as a JSON document under a single key. An
// alternative to FileSink for deployments that already run Redis.
type RedisSink struct {
	client *redis.Client
	key    string
}

// OpenRedisSink creates a Redis-backed sink and pings the server to validate
// the connection.
func OpenRedisSink(ctx context.Context, addr, password string, db int, key string) (*RedisSink, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &RedisSink{client: c, key: key}, nil
}

func (r *RedisSink) Save(ctx context.Context, snap store.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return r.client.Set(ctx, r.key, data, 0).Err()
}

func (r *RedisSink) Load(ctx context.Context) (store.Snapshot, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot key %s: %w", r.key, err)
	}
	return snap, true, nil
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
