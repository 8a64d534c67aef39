package repos

import (
	"gorm.io/gorm"

	"github.com/upbeat-works/edgecms/internal/data/repos/content"
	"github.com/upbeat-works/edgecms/internal/data/repos/versions"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

type VersionRepo = versions.VersionRepo

type LanguageRepo = content.LanguageRepo
type TranslationRepo = content.TranslationRepo
type BlockRepo = content.BlockRepo

func NewVersionRepo(db *gorm.DB, baseLog *logger.Logger) VersionRepo {
	return versions.NewVersionRepo(db, baseLog)
}

func NewLanguageRepo(db *gorm.DB, baseLog *logger.Logger) LanguageRepo {
	return content.NewLanguageRepo(db, baseLog)
}

func NewTranslationRepo(db *gorm.DB, baseLog *logger.Logger) TranslationRepo {
	return content.NewTranslationRepo(db, baseLog)
}

func NewBlockRepo(db *gorm.DB, baseLog *logger.Logger) BlockRepo {
	return content.NewBlockRepo(db, baseLog)
}
