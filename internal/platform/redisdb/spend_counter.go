package redisdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lessongen/internal/platform/logger"
)

// Daily keys outlive their UTC day long enough for late reads and reconciliation.
const spendKeyTTL = 48 * time.Hour

// SpendCounter keeps per-scope daily spend in Redis using INCRBYFLOAT, which
// is atomic on the server.
type SpendCounter struct {
	rdb    goredis.Cmdable
	log    *logger.Logger
	prefix string
}

func NewSpendCounter(rdb goredis.Cmdable, log *logger.Logger, prefix string) *SpendCounter {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "lg"
	}
	return &SpendCounter{rdb: rdb, log: log.With("service", "RedisSpendCounter"), prefix: prefix}
}

func (c *SpendCounter) key(scope, day string) string {
	return c.prefix + ":spend:" + day + ":" + scope
}

func (c *SpendCounter) Increment(ctx context.Context, scope, day string, delta float64) (float64, error) {
	if scope == "" || day == "" {
		return 0, fmt.Errorf("scope and day required")
	}
	key := c.key(scope, day)
	pipe := c.rdb.TxPipeline()
	incr := pipe.IncrByFloat(ctx, key, delta)
	pipe.Expire(ctx, key, spendKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incrbyfloat %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (c *SpendCounter) Get(ctx context.Context, scope, day string) (float64, error) {
	v, err := c.rdb.Get(ctx, c.key(scope, day)).Float64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}
