package cache

import (
	"context"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type redisCache struct {
	c      *rdb.Client
	prefix string
}

// NewRedis envuelve un cliente redis existente como cache.Client.
// El cliente se comparte con el rate limiter; Close aquí es un no-op.
func NewRedis(client *rdb.Client, prefix string) Client {
	return &redisCache{c: client, prefix: prefix}
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	s, err := r.c.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, rdb.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return s, nil
}

func (r *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.c.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.c.Del(ctx, r.prefix+key).Err()
}

func (r *redisCache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }
func (r *redisCache) Close() error                   { return nil }
