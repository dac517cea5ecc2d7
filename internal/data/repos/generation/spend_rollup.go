package generation

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type SpendRollupRepo interface {
	// Increment atomically adds delta to (scope, day) and returns the new total.
	Increment(dbc dbctx.Context, scope, day string, delta float64) (float64, error)
	Get(dbc dbctx.Context, scope, day string) (float64, error)
}

type spendRollupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpendRollupRepo(db *gorm.DB, baseLog *logger.Logger) SpendRollupRepo {
	return &spendRollupRepo{db: db, log: baseLog.With("repo", "SpendRollupRepo")}
}

func (r *spendRollupRepo) Increment(dbc dbctx.Context, scope, day string, delta float64) (float64, error) {
	t := pick(dbc, r.db)
	if scope == "" || day == "" {
		return 0, fmt.Errorf("scope and day required")
	}
	now := time.Now().UTC()
	row := &types.GenerationSpendRollup{Scope: scope, Day: day, SpentUSD: delta, UpdatedAt: now}
	table := types.GenerationSpendRollup{}.TableName()
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]any{
				"spent_usd":  gorm.Expr(table+".spent_usd + ?", delta),
				"updated_at": now,
			}),
		}).
		Create(row).Error; err != nil {
		return 0, err
	}
	return r.Get(dbc, scope, day)
}

func (r *spendRollupRepo) Get(dbc dbctx.Context, scope, day string) (float64, error) {
	t := pick(dbc, r.db)
	var row types.GenerationSpendRollup
	if err := t.WithContext(dbc.Ctx).
		Where("scope = ? AND day = ?", scope, day).
		Limit(1).
		Find(&row).Error; err != nil {
		return 0, err
	}
	return row.SpentUSD, nil
}
