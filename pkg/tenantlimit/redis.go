package tenantlimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tenant:limit:"

// consumeScript runs the token bucket refill-and-consume atomically in
// Redis, so concurrent nodes never double-spend tokens.
//
// KEYS[1] bucket hash, ARGV: tokens, capacity, refill rate, refill interval
// (ms), now (ms). Returns {remaining, last_refill_ms}.
var consumeScript = redis.NewScript(`
local tokens = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill')
local remaining = tonumber(state[1])
local last_refill = tonumber(state[2])

if remaining == nil then
  remaining = capacity
  last_refill = now
end

local max_intervals = math.floor(capacity / rate) + 1
local intervals = math.min(math.floor((now - last_refill) / interval), max_intervals)
if intervals > 0 then
  remaining = math.min(remaining + intervals * rate, capacity)
  last_refill = now
end

-- A denied request must not spend the balance: only persist the decrement
-- when the bucket can cover it.
local result = remaining - tokens
if result >= 0 then
  remaining = result
end

redis.call('HSET', KEYS[1], 'tokens', remaining, 'last_refill', last_refill)
redis.call('PEXPIRE', KEYS[1], interval * (max_intervals + 1))

return {result, last_refill}
`)

// RedisStore keeps bucket state in Redis so a fleet of nodes enforces one
// shared budget per tenant.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store over an established client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (rs *RedisStore) ConsumeTokens(ctx context.Context, tenantID string, tokens int, cfg Config) (int, time.Time, error) {
	now := time.Now()
	res, err := consumeScript.Run(ctx, rs.client,
		[]string{redisKeyPrefix + tenantID},
		tokens, cfg.Capacity, cfg.RefillRate,
		cfg.RefillInterval.Milliseconds(), now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}

	remaining := int(res[0])
	resetAt := time.UnixMilli(res[1]).Add(cfg.RefillInterval)
	return remaining, resetAt, nil
}

func (rs *RedisStore) Reset(ctx context.Context, tenantID string) error {
	return rs.client.Del(ctx, redisKeyPrefix+tenantID).Err()
}
