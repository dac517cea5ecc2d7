package cache

import (
	"context"

	"github.com/yungbote/lessongen/internal/data/repos"
	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/observability"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

const (
	LayerTemplate = "template"
	LayerDayUnit  = "day_unit"
	LayerUserUnit = "user_unit"
)

// Store is the content-addressed generation cache. Inserts never overwrite:
// when two writers race on the same key, both get the row that landed first.
type Store struct {
	log       *logger.Logger
	templates repos.TemplateRepo
	days      repos.DayUnitRepo
	users     repos.UserUnitRepo
}

func New(log *logger.Logger, templates repos.TemplateRepo, days repos.DayUnitRepo, users repos.UserUnitRepo) *Store {
	return &Store{
		log:       log.With("service", "ContentCache"),
		templates: templates,
		days:      days,
		users:     users,
	}
}

func (s *Store) LookupTemplate(ctx context.Context, signature string, version int) (*types.GenerationTemplate, error) {
	row, err := s.templates.Get(dbctx.New(ctx), signature, version)
	if err != nil {
		return nil, err
	}
	observability.Current().ObserveCacheLookup(LayerTemplate, row != nil)
	return row, nil
}

// InsertTemplate returns the canonical row for (signature, version), which
// is row itself unless another writer got there first.
func (s *Store) InsertTemplate(ctx context.Context, row *types.GenerationTemplate) (*types.GenerationTemplate, error) {
	out, inserted, err := s.templates.InsertOrGet(dbctx.New(ctx), row)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.raced(LayerTemplate, "signature", row.Signature)
	}
	return out, nil
}

func (s *Store) LookupDayUnit(ctx context.Context, key repos.DayUnitKey) (*types.GenerationDayUnit, error) {
	row, err := s.days.Get(dbctx.New(ctx), key)
	if err != nil {
		return nil, err
	}
	observability.Current().ObserveCacheLookup(LayerDayUnit, row != nil)
	return row, nil
}

func (s *Store) InsertDayUnit(ctx context.Context, row *types.GenerationDayUnit) (*types.GenerationDayUnit, error) {
	out, inserted, err := s.days.InsertOrGet(dbctx.New(ctx), row)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.raced(LayerDayUnit, "template_id", row.TemplateID, "day_index", row.DayIndex, "kind", row.Kind)
	}
	return out, nil
}

func (s *Store) LookupUserUnit(ctx context.Context, key repos.UserUnitKey) (*types.GenerationUserUnit, error) {
	row, err := s.users.Get(dbctx.New(ctx), key)
	if err != nil {
		return nil, err
	}
	observability.Current().ObserveCacheLookup(LayerUserUnit, row != nil)
	return row, nil
}

func (s *Store) InsertUserUnit(ctx context.Context, row *types.GenerationUserUnit) (*types.GenerationUserUnit, error) {
	out, inserted, err := s.users.InsertOrGet(dbctx.New(ctx), row)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.raced(LayerUserUnit, "user_id", row.UserID, "day_index", row.DayIndex, "kind", row.Kind)
	}
	return out, nil
}

func (s *Store) raced(layer string, kv ...any) {
	observability.Current().IncCacheRace(layer)
	s.log.Info("cache insert lost race; returning canonical row", append([]any{"layer", layer}, kv...)...)
}
