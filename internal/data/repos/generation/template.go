package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type TemplateRepo interface {
	Get(dbc dbctx.Context, signature string, version int) (*types.GenerationTemplate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationTemplate, error)
	// InsertOrGet returns the canonical row for (signature, version).
	InsertOrGet(dbc dbctx.Context, row *types.GenerationTemplate) (*types.GenerationTemplate, bool, error)
}

type templateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateRepo(db *gorm.DB, baseLog *logger.Logger) TemplateRepo {
	return &templateRepo{db: db, log: baseLog.With("repo", "TemplateRepo")}
}

func (r *templateRepo) Get(dbc dbctx.Context, signature string, version int) (*types.GenerationTemplate, error) {
	t := pick(dbc, r.db)
	if signature == "" {
		return nil, nil
	}
	var row types.GenerationTemplate
	if err := t.WithContext(dbc.Ctx).
		Where("signature = ? AND version = ?", signature, version).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *templateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationTemplate, error) {
	t := pick(dbc, r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.GenerationTemplate
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *templateRepo) InsertOrGet(dbc dbctx.Context, row *types.GenerationTemplate) (*types.GenerationTemplate, bool, error) {
	t := pick(dbc, r.db)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	out, inserted, err := insertOrFetch(dbc, t, row, func() (*types.GenerationTemplate, error) {
		return r.Get(dbc, row.Signature, row.Version)
	})
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		r.log.Debug("template insert lost race; using canonical row",
			"signature", row.Signature,
			"version", row.Version,
			"canonical_id", out.ID,
		)
	}
	return out, inserted, nil
}
