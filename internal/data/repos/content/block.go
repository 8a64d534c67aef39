package content

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

type BlockRepo interface {
	Get(dbc dbctx.Context, key string) (*domain.BlockInstance, error)
	List(dbc dbctx.Context) ([]*domain.BlockInstance, error)
	Upsert(dbc dbctx.Context, key string, payload datatypes.JSON) (*domain.BlockInstance, error)
}

type blockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlockRepo(db *gorm.DB, baseLog *logger.Logger) BlockRepo {
	return &blockRepo{
		db:  db,
		log: baseLog.With("repo", "BlockRepo"),
	}
}

func (r *blockRepo) Get(dbc dbctx.Context, key string) (*domain.BlockInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var b domain.BlockInstance
	if err := transaction.WithContext(dbc.Ctx).
		Where("key = ?", key).
		Limit(1).
		Find(&b).Error; err != nil {
		return nil, err
	}
	if b.Key == "" {
		return nil, nil
	}
	return &b, nil
}

func (r *blockRepo) List(dbc dbctx.Context) ([]*domain.BlockInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.BlockInstance
	if err := transaction.WithContext(dbc.Ctx).
		Order("key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *blockRepo) Upsert(dbc dbctx.Context, key string, payload datatypes.JSON) (*domain.BlockInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	b := &domain.BlockInstance{
		Key:       key,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}
