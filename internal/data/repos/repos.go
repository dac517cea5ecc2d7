package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/lessongen/internal/data/repos/generation"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type TemplateRepo = generation.TemplateRepo
type DayUnitRepo = generation.DayUnitRepo
type UserUnitRepo = generation.UserUnitRepo
type CallRecordRepo = generation.CallRecordRepo
type SpendRollupRepo = generation.SpendRollupRepo
type AdminConfigRepo = generation.AdminConfigRepo
type CorpusChunkRepo = generation.CorpusChunkRepo

type DayUnitKey = generation.DayUnitKey
type UserUnitKey = generation.UserUnitKey

func NewTemplateRepo(db *gorm.DB, baseLog *logger.Logger) TemplateRepo {
	return generation.NewTemplateRepo(db, baseLog)
}
func NewDayUnitRepo(db *gorm.DB, baseLog *logger.Logger) DayUnitRepo {
	return generation.NewDayUnitRepo(db, baseLog)
}
func NewUserUnitRepo(db *gorm.DB, baseLog *logger.Logger) UserUnitRepo {
	return generation.NewUserUnitRepo(db, baseLog)
}
func NewCallRecordRepo(db *gorm.DB, baseLog *logger.Logger) CallRecordRepo {
	return generation.NewCallRecordRepo(db, baseLog)
}
func NewSpendRollupRepo(db *gorm.DB, baseLog *logger.Logger) SpendRollupRepo {
	return generation.NewSpendRollupRepo(db, baseLog)
}
func NewAdminConfigRepo(db *gorm.DB, baseLog *logger.Logger) AdminConfigRepo {
	return generation.NewAdminConfigRepo(db, baseLog)
}
func NewCorpusChunkRepo(db *gorm.DB, baseLog *logger.Logger) CorpusChunkRepo {
	return generation.NewCorpusChunkRepo(db, baseLog)
}
