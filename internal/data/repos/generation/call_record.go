package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

// CallRecordRepo is append-only.
type CallRecordRepo interface {
	Create(dbc dbctx.Context, rows []*types.GenerationCallRecord) ([]*types.GenerationCallRecord, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, since time.Time, limit int) ([]*types.GenerationCallRecord, error)
	CountBySignature(dbc dbctx.Context, signature string) (int64, error)
}

type callRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCallRecordRepo(db *gorm.DB, baseLog *logger.Logger) CallRecordRepo {
	return &callRecordRepo{db: db, log: baseLog.With("repo", "CallRecordRepo")}
}

func (r *callRecordRepo) Create(dbc dbctx.Context, rows []*types.GenerationCallRecord) ([]*types.GenerationCallRecord, error) {
	t := pick(dbc, r.db)
	if len(rows) == 0 {
		return []*types.GenerationCallRecord{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *callRecordRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, since time.Time, limit int) ([]*types.GenerationCallRecord, error) {
	t := pick(dbc, r.db)
	var out []*types.GenerationCallRecord
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := t.WithContext(dbc.Ctx).Where("user_id = ?", userID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *callRecordRepo) CountBySignature(dbc dbctx.Context, signature string) (int64, error) {
	t := pick(dbc, r.db)
	var n int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.GenerationCallRecord{}).
		Where("signature = ?", signature).
		Count(&n).Error
	return n, err
}
