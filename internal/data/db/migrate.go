package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/upbeat-works/edgecms/internal/domain"
)

func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		// Version lifecycle
		&domain.Version{},

		// Draft content
		&domain.Language{},
		&domain.Translation{},
		&domain.BlockInstance{},
	)
}

func EnsureIndexes(gdb *gorm.DB) error {
	// Partial unique indexes back the single-live / single-draft invariant at
	// the storage layer; the repo still checks before insert.
	if err := gdb.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_version_live ON version(status) WHERE status = 'live';`).Error; err != nil {
		return fmt.Errorf("create uq_version_live: %w", err)
	}
	if err := gdb.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_version_draft ON version(status) WHERE status = 'draft';`).Error; err != nil {
		return fmt.Errorf("create uq_version_draft: %w", err)
	}
	if err := gdb.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_language_default ON language(is_default) WHERE is_default;`).Error; err != nil {
		return fmt.Errorf("create uq_language_default: %w", err)
	}
	return nil
}
