package catalog

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "catalog:"

// ResponseCache stores raw provider response bodies. Implementations must treat every
// failure as a miss; the client never depends on the cache being reachable.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
}

// RedisCache keeps provider responses in the warm Redis tier.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := r.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Debug("Catalog cache read failed")
		return nil, false
	}
	return body, true
}

func (r *RedisCache) Set(ctx context.Context, key string, body []byte) {
	if r.ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, cacheKeyPrefix+key, body, r.ttl).Err(); err != nil {
		r.logger.WithError(err).WithField("key", key).Debug("Catalog cache write failed")
	}
}
