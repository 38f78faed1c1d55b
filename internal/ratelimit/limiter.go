package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "showcase:rl:"

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter is a sliding-window limiter over Redis sorted sets, one set per
// bucket under keyPrefix. Without Redis, or when Redis fails, every check
// passes.
type Limiter struct {
	rdb redis.Scripter
	now func() time.Time
}

func NewLimiter(rdb *redis.Client) *Limiter {
	l := &Limiter{now: time.Now}
	if rdb != nil {
		l.rdb = rdb
	}
	return l
}

// windowScript trims the set to the window and admits the call if there is
// room. It returns {count, allowed, oldest}: oldest is the score (unix micro)
// of the earliest entry still in the window, so a denied caller knows when a
// slot frees up.
//
// KEYS[1] bucket; ARGV: window start, now, limit, ttl seconds (all integers).
var windowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    count = count + 1
    allowed = 1
end
redis.call('EXPIRE', key, ttl)

local oldest = now
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
    oldest = tonumber(first[2])
end
return {count, allowed, oldest}
`)

// Check admits one call against limit per window for bucket.
func (l *Limiter) Check(ctx context.Context, bucket string, limit int64, window time.Duration) (LimitResult, error) {
	now := l.now()
	open := LimitResult{Allowed: true, Remaining: max(limit-1, 0), ResetAt: now.Add(window)}
	if l.rdb == nil {
		return open, nil
	}

	res, err := windowScript.Run(ctx, l.rdb, []string{keyPrefix + bucket},
		now.Add(-window).UnixMicro(), now.UnixMicro(), limit, int64(window.Seconds())+1,
	).Int64Slice()
	if err == nil && len(res) != 3 {
		err = fmt.Errorf("unexpected script reply %v", res)
	}
	if err != nil {
		slog.Warn("rate limit check failed, allowing request", "bucket", bucket, "error", err)
		return open, nil
	}

	count, allowed := res[0], res[1] == 1
	// The window slides: the bucket resets when its oldest entry ages out.
	reset := time.UnixMicro(res[2]).Add(window)
	out := LimitResult{
		Allowed:   allowed,
		Remaining: max(limit-count, 0),
		ResetAt:   reset,
	}
	if !allowed {
		out.RetryAfter = max(reset.Sub(now), time.Second)
	}
	return out, nil
}
