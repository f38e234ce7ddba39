package fare

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-booking/internal/models"
)

// RedisCache shares estimates between API replicas.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func redisKey(key string) string { return "fare:estimate:" + key }

// Get treats any Redis failure as a miss; the estimate is recomputed.
func (r *RedisCache) Get(ctx context.Context, key string) (models.FareEstimate, bool) {
	raw, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		return models.FareEstimate{}, false
	}
	var est models.FareEstimate
	if err := json.Unmarshal(raw, &est); err != nil {
		return models.FareEstimate{}, false
	}
	return est, true
}

func (r *RedisCache) Set(ctx context.Context, key string, est models.FareEstimate) {
	raw, err := json.Marshal(est)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, redisKey(key), raw, r.ttl).Err()
}
