package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:"

// decrementLevelScript lowers a cached stock level without going below
// zero. The cache is advisory; clamping keeps a lagging mirror from showing
// impossible negative availability.
var decrementLevelScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return 0
end

current = tonumber(current)
if current < quantity then
	quantity = current
end
redis.call('DECRBY', key, quantity)
return 1
`)

// RedisCache mirrors stock levels for fast advisory reads.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func stockKey(partID int64) string {
	return stockKeyPrefix + strconv.FormatInt(partID, 10)
}

func (r *RedisCache) SetLevel(ctx context.Context, partID int64, quantity int) error {
	return r.client.Set(ctx, stockKey(partID), quantity, 0).Err()
}

func (r *RedisCache) Level(ctx context.Context, partID int64) (int, bool, error) {
	qty, err := r.client.Get(ctx, stockKey(partID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return qty, true, nil
}

func (r *RedisCache) DecrementLevel(ctx context.Context, partID int64, quantity int) error {
	return decrementLevelScript.Run(ctx, r.client, []string{stockKey(partID)}, quantity).Err()
}
