package content

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

// ReinsertBatchSize bounds rollback batch inserts to stay under
// storage-layer statement limits.
const ReinsertBatchSize = 25

type TranslationRepo interface {
	ListByLocale(dbc dbctx.Context, locale string) ([]*domain.Translation, error)
	Upsert(dbc dbctx.Context, row *domain.Translation) error
	// BatchInsert writes rows in fixed-size batches. Used by rollback after
	// a wipe, so plain inserts with conflict-tolerance for step re-runs.
	BatchInsert(dbc dbctx.Context, rows []*domain.Translation) error
	// WipeAll removes every translation row. Rollback-only.
	WipeAll(dbc dbctx.Context) error
}

type translationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTranslationRepo(db *gorm.DB, baseLog *logger.Logger) TranslationRepo {
	return &translationRepo{
		db:  db,
		log: baseLog.With("repo", "TranslationRepo"),
	}
}

func (r *translationRepo) ListByLocale(dbc dbctx.Context, locale string) ([]*domain.Translation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Translation
	if err := transaction.WithContext(dbc.Ctx).
		Where("locale = ?", locale).
		Order("key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *translationRepo) Upsert(dbc dbctx.Context, row *domain.Translation) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	row.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}, {Name: "locale"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "section", "updated_at"}),
		}).
		Create(row).Error
}

func (r *translationRepo) BatchInsert(dbc dbctx.Context, rows []*domain.Translation) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = now
		}
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}, {Name: "locale"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "section", "updated_at"}),
		}).
		CreateInBatches(&rows, ReinsertBatchSize).Error
}

func (r *translationRepo) WipeAll(dbc dbctx.Context) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("key IS NOT NULL").
		Delete(&domain.Translation{}).Error
}
