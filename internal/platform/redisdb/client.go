package redisdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lessongen/internal/platform/envutil"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

func ConfigFromEnv() Config {
	return Config{
		Addr:      envutil.String("REDIS_ADDR", ""),
		Password:  envutil.String("REDIS_PASSWORD", ""),
		DB:        envutil.Int("REDIS_DB", 0),
		KeyPrefix: envutil.String("REDIS_KEY_PREFIX", "lg"),
	}
}

// Open dials Redis and pings it once.
func Open(ctx context.Context, log *logger.Logger, cfg Config) (*goredis.Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("redis connected", "addr", cfg.Addr)
	return rdb, nil
}
