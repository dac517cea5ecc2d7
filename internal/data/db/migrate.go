package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/lessongen/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Content cache
		&types.GenerationTemplate{},
		&types.GenerationDayUnit{},
		&types.GenerationUserUnit{},

		// Ledger + budget controls
		&types.GenerationCallRecord{},
		&types.GenerationSpendRollup{},
		&types.GenerationAdminConfig{},

		// Retrieval corpus
		&types.CorpusChunk{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
