package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/upbeat-works/edgecms/internal/data/repos"
	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	pkgerrors "github.com/upbeat-works/edgecms/internal/pkg/errors"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

// ContentService is the draft editing boundary. Every mutation forks a
// draft version first (lazily, via EnsureDraftExists) so edits are always
// attributable to a draft.
type ContentService interface {
	UpsertTranslation(dbc dbctx.Context, locale, key, value, section string, editor *uuid.UUID) (*domain.Version, error)
	ListTranslations(dbc dbctx.Context, locale string) ([]*domain.Translation, error)

	ListLanguages(dbc dbctx.Context) ([]*domain.Language, error)
	CreateLanguage(dbc dbctx.Context, locale string, editor *uuid.UUID) (*domain.Language, error)

	UpsertBlock(dbc dbctx.Context, key string, payload datatypes.JSON, editor *uuid.UUID) (*domain.BlockInstance, error)
	GetBlock(dbc dbctx.Context, key string) (*domain.BlockInstance, error)
	ListBlocks(dbc dbctx.Context) ([]*domain.BlockInstance, error)
}

type contentService struct {
	db           *gorm.DB
	log          *logger.Logger
	versions     repos.VersionRepo
	languages    repos.LanguageRepo
	translations repos.TranslationRepo
	blocks       repos.BlockRepo
}

func NewContentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	versions repos.VersionRepo,
	languages repos.LanguageRepo,
	translations repos.TranslationRepo,
	blocks repos.BlockRepo,
) ContentService {
	return &contentService{
		db:           db,
		log:          baseLog.With("service", "ContentService"),
		versions:     versions,
		languages:    languages,
		translations: translations,
		blocks:       blocks,
	}
}

func (s *contentService) UpsertTranslation(dbc dbctx.Context, locale, key, value, section string, editor *uuid.UUID) (*domain.Version, error) {
	locale = strings.TrimSpace(locale)
	key = strings.TrimSpace(key)
	if locale == "" || key == "" {
		return nil, fmt.Errorf("locale and key are required: %w", pkgerrors.ErrInvalidArgument)
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	var draft *domain.Version
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		var err error
		draft, err = s.versions.EnsureDraftExists(inner, editor)
		if err != nil {
			return err
		}
		return s.translations.Upsert(inner, &domain.Translation{
			Key:     key,
			Locale:  locale,
			Value:   value,
			Section: section,
		})
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *contentService) ListTranslations(dbc dbctx.Context, locale string) ([]*domain.Translation, error) {
	return s.translations.ListByLocale(dbc, locale)
}

func (s *contentService) ListLanguages(dbc dbctx.Context) ([]*domain.Language, error) {
	return s.languages.List(dbc)
}

func (s *contentService) CreateLanguage(dbc dbctx.Context, locale string, editor *uuid.UUID) (*domain.Language, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return nil, fmt.Errorf("locale is required: %w", pkgerrors.ErrInvalidArgument)
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	var lang *domain.Language
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		if _, err := s.versions.EnsureDraftExists(inner, editor); err != nil {
			return err
		}
		current, err := s.languages.GetDefault(inner)
		if err != nil {
			return err
		}
		// The first language ever created becomes the default.
		lang = &domain.Language{Locale: locale, IsDefault: current == nil}
		return s.languages.Insert(inner, []*domain.Language{lang})
	})
	if err != nil {
		return nil, err
	}
	return lang, nil
}

func (s *contentService) UpsertBlock(dbc dbctx.Context, key string, payload datatypes.JSON, editor *uuid.UUID) (*domain.BlockInstance, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("block key is required: %w", pkgerrors.ErrInvalidArgument)
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	var block *domain.BlockInstance
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		if _, err := s.versions.EnsureDraftExists(inner, editor); err != nil {
			return err
		}
		var err error
		block, err = s.blocks.Upsert(inner, key, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (s *contentService) GetBlock(dbc dbctx.Context, key string) (*domain.BlockInstance, error) {
	return s.blocks.Get(dbc, key)
}

func (s *contentService) ListBlocks(dbc dbctx.Context) ([]*domain.BlockInstance, error) {
	return s.blocks.List(dbc)
}
