package services

import (
	"github.com/upbeat-works/edgecms/internal/data/repos"
	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

// VersionService is the read-only version history boundary for the UI.
type VersionService interface {
	List(dbc dbctx.Context) ([]*domain.Version, error)
	Latest(dbc dbctx.Context, status domain.VersionStatus) (*domain.Version, error)
}

type versionService struct {
	log      *logger.Logger
	versions repos.VersionRepo
}

func NewVersionService(baseLog *logger.Logger, versions repos.VersionRepo) VersionService {
	return &versionService{
		log:      baseLog.With("service", "VersionService"),
		versions: versions,
	}
}

func (s *versionService) List(dbc dbctx.Context) ([]*domain.Version, error) {
	return s.versions.List(dbc)
}

func (s *versionService) Latest(dbc dbctx.Context, status domain.VersionStatus) (*domain.Version, error) {
	return s.versions.GetLatest(dbc, status)
}
