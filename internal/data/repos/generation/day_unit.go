package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type DayUnitKey struct {
	TemplateID uuid.UUID
	DayIndex   int
	Kind       string
	Version    int
}

type DayUnitRepo interface {
	Get(dbc dbctx.Context, key DayUnitKey) (*types.GenerationDayUnit, error)
	InsertOrGet(dbc dbctx.Context, row *types.GenerationDayUnit) (*types.GenerationDayUnit, bool, error)
}

type dayUnitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDayUnitRepo(db *gorm.DB, baseLog *logger.Logger) DayUnitRepo {
	return &dayUnitRepo{db: db, log: baseLog.With("repo", "DayUnitRepo")}
}

func (r *dayUnitRepo) Get(dbc dbctx.Context, key DayUnitKey) (*types.GenerationDayUnit, error) {
	t := pick(dbc, r.db)
	if key.TemplateID == uuid.Nil {
		return nil, nil
	}
	var row types.GenerationDayUnit
	if err := t.WithContext(dbc.Ctx).
		Where("template_id = ? AND day_index = ? AND kind = ? AND version = ?",
			key.TemplateID, key.DayIndex, key.Kind, key.Version).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *dayUnitRepo) InsertOrGet(dbc dbctx.Context, row *types.GenerationDayUnit) (*types.GenerationDayUnit, bool, error) {
	t := pick(dbc, r.db)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	key := DayUnitKey{TemplateID: row.TemplateID, DayIndex: row.DayIndex, Kind: row.Kind, Version: row.Version}
	out, inserted, err := insertOrFetch(dbc, t, row, func() (*types.GenerationDayUnit, error) {
		return r.Get(dbc, key)
	})
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		r.log.Debug("day unit insert lost race; using canonical row",
			"template_id", row.TemplateID,
			"day_index", row.DayIndex,
			"kind", row.Kind,
		)
	}
	return out, inserted, nil
}
