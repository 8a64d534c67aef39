package release

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"
	"golang.org/x/sync/errgroup"

	redisclient "github.com/upbeat-works/edgecms/internal/clients/redis"

	"github.com/upbeat-works/edgecms/internal/clients/gcp"
	"github.com/upbeat-works/edgecms/internal/data/repos"
	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	pkgerrors "github.com/upbeat-works/edgecms/internal/pkg/errors"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
	"github.com/upbeat-works/edgecms/internal/snapshot"
)

const (
	snapshotContentType  = "application/json"
	snapshotCacheControl = "public, max-age=31536000, immutable"
	backupContentType    = "application/gzip"

	// uploadParallelism bounds concurrent snapshot writes within one
	// persist attempt.
	uploadParallelism = 8
)

// Activities holds the dependencies every release/rollback step needs.
// Each method is idempotent: Temporal may re-invoke any of them after a
// worker eviction, and a repeat must converge to the same state.
type Activities struct {
	Log          *logger.Logger
	Versions     repos.VersionRepo
	Languages    repos.LanguageRepo
	Translations repos.TranslationRepo
	Artifacts    gcp.ArtifactStore
	Events       redisclient.ReleaseEventBus // optional
}

// GetDraftVersion resolves "the" draft. No draft means nothing to publish,
// which is a business failure, not a retry candidate.
func (a *Activities) GetDraftVersion(ctx context.Context) (VersionInfo, error) {
	v, err := a.Versions.GetLatest(dbctx.New(ctx), domain.VersionDraft)
	if err != nil {
		return VersionInfo{}, err
	}
	if v == nil {
		return VersionInfo{}, temporal.NewNonRetryableApplicationError(
			"no draft version to publish", ErrTypeNoDraft, nil)
	}
	return VersionInfo{ID: v.ID, Status: string(v.Status), Description: v.Description}, nil
}

func (a *Activities) GetLanguages(ctx context.Context) (LanguageSet, error) {
	langs, err := a.Languages.List(dbctx.New(ctx))
	if err != nil {
		return LanguageSet{}, err
	}
	var set LanguageSet
	for _, l := range langs {
		if l.IsDefault {
			set.DefaultLocale = l.Locale
		} else {
			set.OtherLocales = append(set.OtherLocales, l.Locale)
		}
	}
	if set.DefaultLocale == "" {
		return LanguageSet{}, temporal.NewNonRetryableApplicationError(
			"no default language configured", ErrTypeNoDefaultLanguage, nil)
	}
	return set, nil
}

func (a *Activities) GetLocaleRows(ctx context.Context, locale string) (LocaleRows, error) {
	rows, err := a.Translations.ListByLocale(dbctx.New(ctx), locale)
	if err != nil {
		return LocaleRows{}, err
	}
	out := LocaleRows{Locale: locale, Rows: make([]snapshot.Row, 0, len(rows))}
	for _, row := range rows {
		out.Rows = append(out.Rows, snapshot.Row{Key: row.Key, Language: row.Locale, Value: row.Value})
	}
	return out, nil
}

// PersistSnapshots builds the fallback-applied per-locale files and writes
// them all. Uploads run concurrently; any failure fails the whole step and
// the retry overwrites every path with identical bytes, which is safe.
func (a *Activities) PersistSnapshots(ctx context.Context, in PersistSnapshotsInput) (int, error) {
	others := make(map[string][]snapshot.Row, len(in.Others))
	for _, lr := range in.Others {
		others[lr.Locale] = lr.Rows
	}
	files, err := snapshot.BuildLocaleFiles(in.VersionID, in.DefaultLocale, in.DefaultRows, others)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadParallelism)
	for _, f := range files {
		g.Go(func() error {
			return a.Artifacts.Put(gctx, f.Name, f.Content, gcp.PutOptions{
				ContentType:  snapshotContentType,
				CacheControl: snapshotCacheControl,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("persist snapshots for v%d: %w", in.VersionID, err)
	}
	return len(files), nil
}

// PersistBackup writes the recovery blob: raw rows per language, no
// fallback applied, because rollback must restore exactly what each locale
// had, not the published merge.
func (a *Activities) PersistBackup(ctx context.Context, in PersistBackupInput) error {
	lists := make([][]snapshot.Row, 0, len(in.Others)+1)
	lists = append(lists, in.DefaultRows)
	for _, lr := range in.Others {
		lists = append(lists, lr.Rows)
	}
	blob, err := snapshot.EncodeBackup(snapshot.BackupPayload{
		DefaultLocale: in.DefaultLocale,
		Languages:     lists,
	})
	if err != nil {
		return err
	}
	if err := a.Artifacts.Put(ctx, snapshot.BackupPath(in.VersionID), blob, gcp.PutOptions{
		ContentType: backupContentType,
	}); err != nil {
		return fmt.Errorf("persist backup for v%d: %w", in.VersionID, err)
	}
	return nil
}

// PromoteToLive is the single point where "what is live" changes. It runs
// last in both workflows, after every artifact write has succeeded.
func (a *Activities) PromoteToLive(ctx context.Context, in PromoteInput) error {
	err := a.Versions.Promote(dbctx.New(ctx), in.VersionID, domain.VersionStatus(in.ExpectedStatus))
	if err != nil {
		if errors.Is(err, pkgerrors.ErrStatusConflict) || errors.Is(err, pkgerrors.ErrNotFound) {
			return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeStatusConflict, err)
		}
		return err
	}
	if a.Events != nil {
		if pubErr := a.Events.Publish(ctx, redisclient.ReleaseEvent{
			Kind:      in.EventKind,
			VersionID: in.VersionID,
		}); pubErr != nil && a.Log != nil {
			a.Log.Warn("Release event publish failed", "version_id", in.VersionID, "error", pubErr)
		}
	}
	return nil
}

// GetArchivedVersion validates a rollback target. Only archived versions
// can be rolled back; rejecting drafts and the live version here keeps the
// destructive steps unreachable for bad targets.
func (a *Activities) GetArchivedVersion(ctx context.Context, versionID int64) (VersionInfo, error) {
	v, err := a.Versions.GetByID(dbctx.New(ctx), versionID)
	if err != nil {
		return VersionInfo{}, err
	}
	if v == nil {
		return VersionInfo{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("version %d not found", versionID), ErrTypeNotArchived, nil)
	}
	if v.Status != domain.VersionArchived {
		return VersionInfo{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("version %d has status %q, only archived versions can be rolled back", versionID, v.Status),
			ErrTypeNotArchived, nil)
	}
	return VersionInfo{ID: v.ID, Status: string(v.Status), Description: v.Description}, nil
}

func (a *Activities) FetchBackup(ctx context.Context, versionID int64) ([]byte, error) {
	blob, err := a.Artifacts.Get(ctx, snapshot.BackupPath(versionID))
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("version %d has no backup; versions published before backups were introduced cannot be rolled back", versionID),
				ErrTypeBackupMissing, err)
		}
		return nil, err
	}
	return blob, nil
}

func (a *Activities) DecodeBackupBlob(ctx context.Context, blob []byte) (snapshot.BackupPayload, error) {
	payload, err := snapshot.DecodeBackup(blob)
	if err != nil {
		return snapshot.BackupPayload{}, temporal.NewNonRetryableApplicationError(
			err.Error(), ErrTypeBackupMalformed, err)
	}
	return *payload, nil
}

// WipeContent deletes all translations, then all languages. Destructive
// full-replace; a crash mid-step leaves the dataset empty until the step
// engine re-runs it, and delete-then-insert is repeat-safe.
func (a *Activities) WipeContent(ctx context.Context) error {
	dbc := dbctx.New(ctx)
	if err := a.Translations.WipeAll(dbc); err != nil {
		return fmt.Errorf("wipe translations: %w", err)
	}
	if err := a.Languages.WipeAll(dbc); err != nil {
		return fmt.Errorf("wipe languages: %w", err)
	}
	return nil
}

// RestoreLanguages reinserts the distinct locales found in the backup.
// The payload's default locale wins; legacy blobs already resolved it to
// the first locale in list order during decode.
func (a *Activities) RestoreLanguages(ctx context.Context, payload snapshot.BackupPayload) (int, error) {
	langs := make([]*domain.Language, 0, len(payload.Languages)+1)
	seen := make(map[string]bool, len(payload.Languages)+1)
	// The default language may have had zero rows at publish time; the
	// envelope still names it and it must come back as the default.
	if payload.DefaultLocale != "" {
		seen[payload.DefaultLocale] = true
		langs = append(langs, &domain.Language{Locale: payload.DefaultLocale, IsDefault: true})
	}
	for _, list := range payload.Languages {
		if len(list) == 0 {
			continue
		}
		locale := list[0].Language
		if locale == "" || seen[locale] {
			continue
		}
		seen[locale] = true
		langs = append(langs, &domain.Language{
			Locale:    locale,
			IsDefault: locale == payload.DefaultLocale,
		})
	}
	if err := a.Languages.Insert(dbctx.New(ctx), langs); err != nil {
		return 0, fmt.Errorf("restore languages: %w", err)
	}
	return len(langs), nil
}

func (a *Activities) RestoreTranslations(ctx context.Context, payload snapshot.BackupPayload) (int, error) {
	var rows []*domain.Translation
	for _, list := range payload.Languages {
		for _, row := range list {
			rows = append(rows, &domain.Translation{
				Key:    row.Key,
				Locale: row.Language,
				Value:  row.Value,
			})
		}
	}
	if err := a.Translations.BatchInsert(dbctx.New(ctx), rows); err != nil {
		return 0, fmt.Errorf("restore translations: %w", err)
	}
	return len(rows), nil
}
