package generation

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type AdminConfigRepo interface {
	// Get returns nil when the singleton row has never been written.
	Get(dbc dbctx.Context) (*types.GenerationAdminConfig, error)
	Save(dbc dbctx.Context, row *types.GenerationAdminConfig) error
}

type adminConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdminConfigRepo(db *gorm.DB, baseLog *logger.Logger) AdminConfigRepo {
	return &adminConfigRepo{db: db, log: baseLog.With("repo", "AdminConfigRepo")}
}

func (r *adminConfigRepo) Get(dbc dbctx.Context) (*types.GenerationAdminConfig, error) {
	t := pick(dbc, r.db)
	var row types.GenerationAdminConfig
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", types.AdminConfigID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *adminConfigRepo) Save(dbc dbctx.Context, row *types.GenerationAdminConfig) error {
	t := pick(dbc, r.db)
	row.ID = types.AdminConfigID
	row.UpdatedAt = time.Now().UTC()
	if len(row.DisabledEndpoints) == 0 {
		row.SetDisabled(nil)
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"daily_user_budget_usd",
				"daily_global_budget_usd",
				"disabled_endpoints",
				"alert_webhook",
				"updated_by",
				"updated_at",
			}),
		}).
		Create(row).Error
}
