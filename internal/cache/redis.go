package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a cache backed by a Redis server. Every command error is absorbed
// and reported as a miss (or a dropped write), so an unavailable server
// degrades the service to fetch-always rather than breaking it.
type Redis struct {
	client *redis.Client
}

var _ Cache = (*Redis)(nil)

// NewRedis creates a Redis-backed cache. Connectivity is verified with a ping;
// a failed ping logs a warning but does not fail construction, matching the
// degrade-to-miss contract.
func NewRedis(ctx context.Context, client *redis.Client) *Redis {
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, caching degraded to miss", "error", err)
	}
	return &Redis{client: client}
}

// Get retrieves a value from Redis. Missing keys and command errors both
// read as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.LogAttrs(ctx, slog.LevelDebug, "redis get failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	return data, true
}

// Set stores a value with the given TTL via SET EX. Errors are dropped.
func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		slog.LogAttrs(ctx, slog.LevelDebug, "redis set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Delete removes a value from Redis.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		slog.LogAttrs(ctx, slog.LevelDebug, "redis del failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Purge removes all values in the selected database.
func (r *Redis) Purge(ctx context.Context) {
	if err := r.client.FlushDB(ctx).Err(); err != nil {
		slog.LogAttrs(ctx, slog.LevelDebug, "redis flushdb failed",
			slog.String("error", err.Error()),
		)
	}
}

// Close releases the underlying client connections.
func (r *Redis) Close() error {
	return r.client.Close()
}
