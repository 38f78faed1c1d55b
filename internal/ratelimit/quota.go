package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaResult is the outcome of a daily quota check.
type QuotaResult struct {
	Allowed bool
	Used    int64
	Limit   int64
}

// QuotaTracker counts images generated per client key per UTC day via Redis.
type QuotaTracker struct {
	rdb *redis.Client
	now func() time.Time
}

// NewQuotaTracker creates a quota tracker. If rdb is nil, all checks pass.
func NewQuotaTracker(rdb *redis.Client) *QuotaTracker {
	return &QuotaTracker{rdb: rdb, now: time.Now}
}

func (q *QuotaTracker) dailyKey(keyID string) string {
	day := q.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("showcase:quota:images:%s:%s", keyID, day)
}

// CheckDailyImages reports whether the key is still under its daily image quota.
func (q *QuotaTracker) CheckDailyImages(ctx context.Context, keyID string, limit int64) (QuotaResult, error) {
	if q.rdb == nil {
		return QuotaResult{Allowed: true, Limit: limit}, nil
	}

	used, err := q.rdb.Get(ctx, q.dailyKey(keyID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		// Fail open on Redis errors
		return QuotaResult{Allowed: true, Limit: limit}, nil
	}

	return QuotaResult{
		Allowed: used < limit,
		Used:    used,
		Limit:   limit,
	}, nil
}

// RecordImages adds n generated images to the key's counter for today.
func (q *QuotaTracker) RecordImages(ctx context.Context, keyID string, n int64) error {
	if q.rdb == nil || n <= 0 || keyID == "" {
		return nil
	}

	key := q.dailyKey(keyID)
	pipe := q.rdb.Pipeline()
	pipe.IncrBy(ctx, key, n)
	// Expire at end of day UTC + 1 hour buffer
	now := q.now().UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	pipe.Expire(ctx, key, endOfDay.Sub(now)+time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}
