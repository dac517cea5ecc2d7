package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/lessongen/internal/data/repos"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type Repos struct {
	Template    repos.TemplateRepo
	DayUnit     repos.DayUnitRepo
	UserUnit    repos.UserUnitRepo
	CallRecord  repos.CallRecordRepo
	SpendRollup repos.SpendRollupRepo
	AdminConfig repos.AdminConfigRepo
	CorpusChunk repos.CorpusChunkRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Template:    repos.NewTemplateRepo(db, log),
		DayUnit:     repos.NewDayUnitRepo(db, log),
		UserUnit:    repos.NewUserUnitRepo(db, log),
		CallRecord:  repos.NewCallRecordRepo(db, log),
		SpendRollup: repos.NewSpendRollupRepo(db, log),
		AdminConfig: repos.NewAdminConfigRepo(db, log),
		CorpusChunk: repos.NewCorpusChunkRepo(db, log),
	}
}
