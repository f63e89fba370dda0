package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is the external-cache Backend: a hash per namespace (via
// HSET/HGET/HDEL) plus a set per namespace (via SADD/SREM/SISMEMBER/
// SCARD), addressed over github.com/redis/go-redis/v9. Values cross the
// wire as whatever opaque bytes the Store above hands it.
type RedisBackend struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisBackend wraps an existing go-redis client. ctx bounds every
// command issued through the backend; callers typically pass
// context.Background() and rely on the client's own dial/read timeouts.
func NewRedisBackend(client *redis.Client, ctx context.Context) *RedisBackend {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RedisBackend{client: client, ctx: ctx}
}

// DialRedis opens a client from a redis:// URL, the cache_backend_url
// configuration value.
func DialRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (r *RedisBackend) Get(ns, key string) ([]byte, bool, error) {
	v, err := r.client.HGet(r.ctx, ns, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("HGET %s %s: %w", ns, key, err)
	}
	return v, true, nil
}

func (r *RedisBackend) Set(ns, key string, value []byte) error {
	if err := r.client.HSet(r.ctx, ns, key, value).Err(); err != nil {
		return fmt.Errorf("HSET %s %s: %w", ns, key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ns, key string) error {
	if err := r.client.HDel(r.ctx, ns, key).Err(); err != nil {
		return fmt.Errorf("HDEL %s %s: %w", ns, key, err)
	}
	return nil
}

func (r *RedisBackend) Add(ns, member string) error {
	if err := r.client.SAdd(r.ctx, ns, member).Err(); err != nil {
		return fmt.Errorf("SADD %s: %w", ns, err)
	}
	return nil
}

func (r *RedisBackend) Remove(ns, member string) error {
	if err := r.client.SRem(r.ctx, ns, member).Err(); err != nil {
		return fmt.Errorf("SREM %s: %w", ns, err)
	}
	return nil
}

func (r *RedisBackend) Has(ns, member string) (bool, error) {
	ok, err := r.client.SIsMember(r.ctx, ns, member).Result()
	if err != nil {
		return false, fmt.Errorf("SISMEMBER %s: %w", ns, err)
	}
	return ok, nil
}

func (r *RedisBackend) Cardinality(ns string) (int, error) {
	n, err := r.client.SCard(r.ctx, ns).Result()
	if err != nil {
		return 0, fmt.Errorf("SCARD %s: %w", ns, err)
	}
	return int(n), nil
}

func (r *RedisBackend) Clear() error {
	if err := r.client.FlushDB(r.ctx).Err(); err != nil {
		return fmt.Errorf("FLUSHDB: %w", err)
	}
	return nil
}
