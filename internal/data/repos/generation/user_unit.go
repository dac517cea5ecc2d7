package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type UserUnitKey struct {
	UserID   uuid.UUID
	GoalID   uuid.UUID
	DayIndex int
	Kind     string
}

type UserUnitRepo interface {
	Get(dbc dbctx.Context, key UserUnitKey) (*types.GenerationUserUnit, error)
	InsertOrGet(dbc dbctx.Context, row *types.GenerationUserUnit) (*types.GenerationUserUnit, bool, error)
}

type userUnitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserUnitRepo(db *gorm.DB, baseLog *logger.Logger) UserUnitRepo {
	return &userUnitRepo{db: db, log: baseLog.With("repo", "UserUnitRepo")}
}

func (r *userUnitRepo) Get(dbc dbctx.Context, key UserUnitKey) (*types.GenerationUserUnit, error) {
	t := pick(dbc, r.db)
	if key.UserID == uuid.Nil {
		return nil, nil
	}
	var row types.GenerationUserUnit
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND goal_id = ? AND day_index = ? AND kind = ?",
			key.UserID, key.GoalID, key.DayIndex, key.Kind).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userUnitRepo) InsertOrGet(dbc dbctx.Context, row *types.GenerationUserUnit) (*types.GenerationUserUnit, bool, error) {
	t := pick(dbc, r.db)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	key := UserUnitKey{UserID: row.UserID, GoalID: row.GoalID, DayIndex: row.DayIndex, Kind: row.Kind}
	out, inserted, err := insertOrFetch(dbc, t, row, func() (*types.GenerationUserUnit, error) {
		return r.Get(dbc, key)
	})
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		r.log.Debug("user unit insert lost race; using canonical row", "user_id", row.UserID, "kind", row.Kind)
	}
	return out, inserted, nil
}
