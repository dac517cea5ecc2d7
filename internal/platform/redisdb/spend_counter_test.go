package redisdb

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/lessongen/internal/platform/logger"
)

func TestSpendCounterConcurrentIncrements(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	log := logger.NewNop()
	rdb, err := Open(ctx, log, Config{Addr: addr})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rdb.Close()

	c := NewSpendCounter(rdb, log, "lgtest-"+uuid.NewString())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Increment(ctx, "global", "2026-01-02", 0.25); err != nil {
				t.Errorf("Increment: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := c.Get(ctx, "global", "2026-01-02")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 5 {
		t.Fatalf("want 5, got %v", got)
	}
	if missing, err := c.Get(ctx, "user:x", "2026-01-02"); err != nil || missing != 0 {
		t.Fatalf("missing key: got %v err=%v", missing, err)
	}
}

func TestOpenRequiresAddr(t *testing.T) {
	if _, err := Open(context.Background(), logger.NewNop(), Config{}); err == nil {
		t.Fatalf("expected error without addr")
	}
}
