package budget

import (
	"context"

	"github.com/yungbote/lessongen/internal/data/repos"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
)

// SpendCounter is an atomic per-(scope, day) accumulator. Implementations:
// the gorm rollup table (RepoCounter) and Redis (redisdb.SpendCounter).
type SpendCounter interface {
	Increment(ctx context.Context, scope, day string, delta float64) (float64, error)
	Get(ctx context.Context, scope, day string) (float64, error)
}

type repoCounter struct {
	repo repos.SpendRollupRepo
}

func RepoCounter(repo repos.SpendRollupRepo) SpendCounter {
	return &repoCounter{repo: repo}
}

func (c *repoCounter) Increment(ctx context.Context, scope, day string, delta float64) (float64, error) {
	return c.repo.Increment(dbctx.New(ctx), scope, day, delta)
}

func (c *repoCounter) Get(ctx context.Context, scope, day string) (float64, error) {
	return c.repo.Get(dbctx.New(ctx), scope, day)
}
