package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/echoverse/server/internal/module/quota"
)

const dayCounterKeyPrefix = "usage:count:"

// DayCounter keeps per-day admission counts in Redis, maintained
// write-through by the quota guard. Keys expire at the end of the UTC day.
// It backs fast diagnostic reads only; the ledger stays authoritative.
type DayCounter struct {
	client *redis.Client
}

// NewDayCounter creates a new Redis day counter.
func NewDayCounter(client *redis.Client) *DayCounter {
	return &DayCounter{client: client}
}

func (c *DayCounter) key(userID string, feature quota.Feature, now time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", dayCounterKeyPrefix, userID, feature, now.UTC().Format("2006-01-02"))
}

// Get returns today's count, or quota.ErrCounterMiss when no counter exists.
func (c *DayCounter) Get(ctx context.Context, userID string, feature quota.Feature, now time.Time) (int, error) {
	val, err := c.client.Get(ctx, c.key(userID, feature, now)).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, quota.ErrCounterMiss
		}
		return 0, err
	}
	return val, nil
}

// Increment bumps today's count and pins the key's expiry to the next UTC
// midnight, when quotas reset.
func (c *DayCounter) Increment(ctx context.Context, userID string, feature quota.Feature, now time.Time) (int, error) {
	key := c.key(userID, feature, now)

	val, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	now = now.UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	if ttl := time.Until(endOfDay); ttl > 0 {
		// Without the TTL the key would outlive its day; surface the failure
		// so the guard logs it instead of leaving an immortal counter behind.
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return int(val), fmt.Errorf("set counter expiry: %w", err)
		}
	}

	return int(val), nil
}

// Compile-time check
var _ quota.DayCounter = (*DayCounter)(nil)
