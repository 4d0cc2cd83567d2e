package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// acquireScript compares and sets the stored timestamp in one step so two
// concurrent reports cannot both pass the cooldown check. It returns 0 when
// allowed and the milliseconds left on the cooldown otherwise.
var acquireScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local last = redis.call('GET', KEYS[1])

if last then
    local elapsed = now - tonumber(last)
    if elapsed < window then
        return window - elapsed
    end
end

redis.call('SET', KEYS[1], now, 'PX', window)
return 0
`)

type RedisStore struct {
	client redis.Scripter
}

func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Acquire(ctx context.Context, key string, now time.Time, window time.Duration) (Decision, error) {
	left, err := acquireScript.Run(ctx, s.client, []string{key}, now.UnixMilli(), windowMillis(window)).Int64()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if left > 0 {
		return Decision{RetryAfter: time.Duration(left) * time.Millisecond}, nil
	}
	return Decision{Allowed: true}, nil
}

// windowMillis rounds up to whole milliseconds; PX rejects 0.
func windowMillis(d time.Duration) int64 {
	ms := (d + time.Millisecond - 1) / time.Millisecond
	return max(int64(ms), 1)
}
