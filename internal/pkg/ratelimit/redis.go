package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter shares windows across API replicas. When Redis is unreachable
// it degrades to the in-memory limiter so login stays throttled per process.
type RedisLimiter struct {
	client   redis.UniversalClient
	limit    int
	window   time.Duration
	prefix   string
	fallback *InMemoryLimiter
}

func NewRedis(client redis.UniversalClient, limit int, w time.Duration) *RedisLimiter {
	fallback := NewInMemory(limit, w)
	return &RedisLimiter{
		client:   client,
		limit:    fallback.limit,
		window:   fallback.window,
		prefix:   "cognis:rl:",
		fallback: fallback,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) Decision {
	if l.client == nil {
		return l.fallback.Allow(ctx, key)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	res, err := windowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Result()
	if err != nil {
		log.Printf("ratelimit_redis_error key=%s err=%v", key, err)
		return l.fallback.Allow(ctx, key)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		log.Printf("ratelimit_redis_error key=%s err=unexpected script result %v", key, res)
		return l.fallback.Allow(ctx, key)
	}

	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = l.window.Milliseconds()
	}

	return newDecision(int(count), l.limit, time.Now().UTC().Add(time.Duration(ttlMs)*time.Millisecond))
}
