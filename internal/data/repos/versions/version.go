package versions

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	pkgerrors "github.com/upbeat-works/edgecms/internal/pkg/errors"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

type VersionRepo interface {
	Create(dbc dbctx.Context, description string, createdBy *uuid.UUID) (*domain.Version, error)
	GetByID(dbc dbctx.Context, id int64) (*domain.Version, error)
	// GetLatest returns the highest-id version, optionally filtered by
	// status (empty status means any). Returns nil when none match.
	GetLatest(dbc dbctx.Context, status domain.VersionStatus) (*domain.Version, error)
	List(dbc dbctx.Context) ([]*domain.Version, error)
	// Promote archives whatever row is currently live and flips the target
	// to live, as one transaction. The target must be in expectedStatus, or
	// already live (a re-run after a partial earlier attempt); anything else
	// is ErrStatusConflict. Rollback relies on the same archive-then-flip:
	// the previously live version ends up archived with no extra record.
	Promote(dbc dbctx.Context, id int64, expectedStatus domain.VersionStatus) error
	// EnsureDraftExists creates the draft lazily on first edit since the
	// last publish. Idempotent: an existing draft is returned as is.
	EnsureDraftExists(dbc dbctx.Context, createdBy *uuid.UUID) (*domain.Version, error)
}

type versionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVersionRepo(db *gorm.DB, baseLog *logger.Logger) VersionRepo {
	return &versionRepo{
		db:  db,
		log: baseLog.With("repo", "VersionRepo"),
	}
}

func (r *versionRepo) Create(dbc dbctx.Context, description string, createdBy *uuid.UUID) (*domain.Version, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	v := &domain.Version{
		Description: description,
		Status:      domain.VersionDraft,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   createdBy,
	}
	if err := transaction.WithContext(dbc.Ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (r *versionRepo) GetByID(dbc dbctx.Context, id int64) (*domain.Version, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var v domain.Version
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *versionRepo) GetLatest(dbc dbctx.Context, status domain.VersionStatus) (*domain.Version, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&domain.Version{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var v domain.Version
	if err := q.Order("id DESC").Limit(1).Find(&v).Error; err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *versionRepo) List(dbc dbctx.Context) ([]*domain.Version, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Version
	if err := transaction.WithContext(dbc.Ctx).
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *versionRepo) Promote(dbc dbctx.Context, id int64, expectedStatus domain.VersionStatus) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var target domain.Version
		if err := txx.Where("id = ?", id).Limit(1).Find(&target).Error; err != nil {
			return err
		}
		if target.ID == 0 {
			return fmt.Errorf("promote version %d: %w", id, pkgerrors.ErrNotFound)
		}
		// Already live means an earlier attempt got past the flip; treat the
		// re-run as a no-op so the promote step stays idempotent.
		if target.Status != expectedStatus && target.Status != domain.VersionLive {
			return fmt.Errorf("promote version %d: status is %q, expected %q: %w",
				id, target.Status, expectedStatus, pkgerrors.ErrStatusConflict)
		}
		if err := txx.Model(&domain.Version{}).
			Where("status = ? AND id <> ?", domain.VersionLive, id).
			Update("status", domain.VersionArchived).Error; err != nil {
			return err
		}
		return txx.Model(&domain.Version{}).
			Where("id = ?", id).
			Update("status", domain.VersionLive).Error
	})
}

func (r *versionRepo) EnsureDraftExists(dbc dbctx.Context, createdBy *uuid.UUID) (*domain.Version, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out *domain.Version
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		draft, err := r.GetLatest(inner, domain.VersionDraft)
		if err != nil {
			return err
		}
		if draft != nil {
			out = draft
			return nil
		}
		live, err := r.GetLatest(inner, domain.VersionLive)
		if err != nil {
			return err
		}
		description := time.Now().UTC().Format("2006-01-02")
		if live != nil {
			description = fmt.Sprintf("fork from v%d", live.ID)
		}
		out, err = r.Create(inner, description, createdBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
