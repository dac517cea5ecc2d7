package generation

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type CorpusChunkRepo interface {
	// UpsertMany inserts chunks; existing ids are left untouched since chunks are immutable.
	UpsertMany(dbc dbctx.Context, rows []*types.CorpusChunk) (int64, error)
	// GetByIDs returns rows in the order of ids, skipping unknown ids.
	GetByIDs(dbc dbctx.Context, ids []string) ([]*types.CorpusChunk, error)
	ListAll(dbc dbctx.Context) ([]*types.CorpusChunk, error)
	CountByPack(dbc dbctx.Context, packID string) (int64, error)
}

type corpusChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCorpusChunkRepo(db *gorm.DB, baseLog *logger.Logger) CorpusChunkRepo {
	return &corpusChunkRepo{db: db, log: baseLog.With("repo", "CorpusChunkRepo")}
}

func (r *corpusChunkRepo) UpsertMany(dbc dbctx.Context, rows []*types.CorpusChunk) (int64, error) {
	t := pick(dbc, r.db)
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		CreateInBatches(rows, 200)
	return res.RowsAffected, res.Error
}

func (r *corpusChunkRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*types.CorpusChunk, error) {
	t := pick(dbc, r.db)
	out := []*types.CorpusChunk{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*types.CorpusChunk
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*types.CorpusChunk, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *corpusChunkRepo) ListAll(dbc dbctx.Context) ([]*types.CorpusChunk, error) {
	t := pick(dbc, r.db)
	var rows []*types.CorpusChunk
	if err := t.WithContext(dbc.Ctx).Order("pack_id ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *corpusChunkRepo) CountByPack(dbc dbctx.Context, packID string) (int64, error) {
	t := pick(dbc, r.db)
	var n int64
	err := t.WithContext(dbc.Ctx).Model(&types.CorpusChunk{}).Where("pack_id = ?", packID).Count(&n).Error
	return n, err
}
