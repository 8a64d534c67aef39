package content

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

type LanguageRepo interface {
	List(dbc dbctx.Context) ([]*domain.Language, error)
	GetDefault(dbc dbctx.Context) (*domain.Language, error)
	// Insert creates language rows as given; callers are responsible for
	// keeping exactly one IsDefault among the inserted set.
	Insert(dbc dbctx.Context, languages []*domain.Language) error
	// WipeAll removes every language row. Rollback-only; translations must
	// be wiped first.
	WipeAll(dbc dbctx.Context) error
}

type languageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLanguageRepo(db *gorm.DB, baseLog *logger.Logger) LanguageRepo {
	return &languageRepo{
		db:  db,
		log: baseLog.With("repo", "LanguageRepo"),
	}
}

func (r *languageRepo) List(dbc dbctx.Context) ([]*domain.Language, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Language
	if err := transaction.WithContext(dbc.Ctx).
		Order("locale ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *languageRepo) GetDefault(dbc dbctx.Context) (*domain.Language, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var l domain.Language
	if err := transaction.WithContext(dbc.Ctx).
		Where("is_default = ?", true).
		Limit(1).
		Find(&l).Error; err != nil {
		return nil, err
	}
	if l.Locale == "" {
		return nil, nil
	}
	return &l, nil
}

func (r *languageRepo) Insert(dbc dbctx.Context, languages []*domain.Language) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(languages) == 0 {
		return nil
	}
	// Re-running the rollback restore step must not fail on rows an earlier
	// attempt already inserted.
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "locale"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_default"}),
		}).
		Create(&languages).Error
}

func (r *languageRepo) WipeAll(dbc dbctx.Context) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("locale IS NOT NULL").
		Delete(&domain.Language{}).Error
}
