package release_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"gorm.io/gorm"

	"github.com/upbeat-works/edgecms/internal/clients/gcp"
	"github.com/upbeat-works/edgecms/internal/data/repos"
	"github.com/upbeat-works/edgecms/internal/data/repos/testutil"
	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	pkgerrors "github.com/upbeat-works/edgecms/internal/pkg/errors"
	"github.com/upbeat-works/edgecms/internal/snapshot"
	"github.com/upbeat-works/edgecms/internal/temporalx/release"
)

// memArtifacts is an in-memory gcp.ArtifactStore. Put runs concurrently
// during snapshot persistence, hence the mutex.
type memArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{objects: map[string][]byte{}}
}

func (s *memArtifacts) Put(_ context.Context, key string, data []byte, _ gcp.PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	return nil
}

func (s *memArtifacts) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("artifact %q: %w", key, pkgerrors.ErrNotFound)
	}
	return data, nil
}

func (s *memArtifacts) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (s *memArtifacts) get(tb testing.TB, key string) []byte {
	tb.Helper()
	data, err := s.Get(context.Background(), key)
	if err != nil {
		tb.Fatalf("artifact %q missing", key)
	}
	return data
}

// failingPromote delegates to the real repo but rejects every Promote, to
// observe what state a failed final step leaves behind.
type failingPromote struct {
	repos.VersionRepo
}

func (f failingPromote) Promote(dbctx.Context, int64, domain.VersionStatus) error {
	return fmt.Errorf("promote unavailable")
}

type fixture struct {
	gdb      *gorm.DB
	store    *memArtifacts
	acts     *release.Activities
	versions repos.VersionRepo
	env      *testsuite.TestWorkflowEnvironment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	store := newMemArtifacts()

	versions := repos.NewVersionRepo(gdb, log)
	acts := &release.Activities{
		Log:          log,
		Versions:     versions,
		Languages:    repos.NewLanguageRepo(gdb, log),
		Translations: repos.NewTranslationRepo(gdb, log),
		Artifacts:    store,
	}

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterActivity(acts)

	return &fixture{gdb: gdb, store: store, acts: acts, versions: versions, env: env}
}

func (f *fixture) seedVersion(t *testing.T, status domain.VersionStatus) *domain.Version {
	t.Helper()
	v := &domain.Version{Description: "seed", Status: status}
	if err := f.gdb.Create(v).Error; err != nil {
		t.Fatalf("seed version: %v", err)
	}
	return v
}

func (f *fixture) seedContent(t *testing.T) {
	t.Helper()
	langs := []*domain.Language{
		{Locale: "en", IsDefault: true},
		{Locale: "fr"},
	}
	if err := f.gdb.Create(&langs).Error; err != nil {
		t.Fatalf("seed languages: %v", err)
	}
	rows := []*domain.Translation{
		{Key: "a", Locale: "en", Value: "A"},
		{Key: "b", Locale: "en", Value: "B"},
		{Key: "a", Locale: "fr", Value: "Ah"},
	}
	if err := f.gdb.Create(&rows).Error; err != nil {
		t.Fatalf("seed translations: %v", err)
	}
}

func appErrType(tb testing.TB, err error) string {
	tb.Helper()
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		tb.Fatalf("err = %v, want ApplicationError", err)
	}
	return appErr.Type()
}

func TestReleaseWorkflowPublishesDraft(t *testing.T) {
	f := newFixture(t)
	draft := f.seedVersion(t, domain.VersionDraft)
	f.seedContent(t)

	f.env.ExecuteWorkflow(release.ReleaseWorkflow)
	if !f.env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := f.env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}

	var result release.ReleaseResult
	if err := f.env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.VersionID != draft.ID {
		t.Fatalf("released version %d, want %d", result.VersionID, draft.ID)
	}
	if len(result.Locales) != 2 {
		t.Fatalf("locales = %v, want 2", result.Locales)
	}

	// Snapshot files exist and fr carries the fallback for its missing key.
	en := f.store.get(t, snapshot.SnapshotPath(draft.ID, "en"))
	if string(en) != `{"a":"A","b":"B"}` {
		t.Fatalf("en snapshot = %s", en)
	}
	fr := f.store.get(t, snapshot.SnapshotPath(draft.ID, "fr"))
	if string(fr) != `{"a":"Ah","b":"B"}` {
		t.Fatalf("fr snapshot = %s", fr)
	}

	// Backup holds the raw rows without fallback.
	payload, err := snapshot.DecodeBackup(f.store.get(t, snapshot.BackupPath(draft.ID)))
	if err != nil {
		t.Fatalf("decode backup: %v", err)
	}
	if payload.DefaultLocale != "en" {
		t.Fatalf("backup default locale = %q", payload.DefaultLocale)
	}
	total := 0
	for _, list := range payload.Languages {
		total += len(list)
	}
	if total != 3 {
		t.Fatalf("backup holds %d rows, want 3", total)
	}

	live, err := f.versions.GetLatest(dbctx.New(context.Background()), domain.VersionLive)
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	if live == nil || live.ID != draft.ID {
		t.Fatalf("live = %+v, want v%d", live, draft.ID)
	}
}

func TestReleaseWorkflowNoDraftIsFatal(t *testing.T) {
	f := newFixture(t)
	f.seedContent(t)

	f.env.ExecuteWorkflow(release.ReleaseWorkflow)
	err := f.env.GetWorkflowError()
	if err == nil {
		t.Fatal("expected workflow failure")
	}
	if got := appErrType(t, err); got != release.ErrTypeNoDraft {
		t.Fatalf("error type = %q, want %q", got, release.ErrTypeNoDraft)
	}
}

func TestReleaseWorkflowNoDefaultLanguageIsFatal(t *testing.T) {
	f := newFixture(t)
	f.seedVersion(t, domain.VersionDraft)
	if err := f.gdb.Create(&domain.Language{Locale: "fr"}).Error; err != nil {
		t.Fatalf("seed language: %v", err)
	}

	f.env.ExecuteWorkflow(release.ReleaseWorkflow)
	err := f.env.GetWorkflowError()
	if err == nil {
		t.Fatal("expected workflow failure")
	}
	if got := appErrType(t, err); got != release.ErrTypeNoDefaultLanguage {
		t.Fatalf("error type = %q, want %q", got, release.ErrTypeNoDefaultLanguage)
	}
	if len(f.store.objects) != 0 {
		t.Fatalf("artifacts written before language validation: %v", f.store.objects)
	}
}

func TestReleaseWorkflowPromoteFailureLeavesDraft(t *testing.T) {
	f := newFixture(t)
	draft := f.seedVersion(t, domain.VersionDraft)
	f.seedContent(t)
	f.acts.Versions = failingPromote{VersionRepo: f.versions}

	f.env.ExecuteWorkflow(release.ReleaseWorkflow)
	if f.env.GetWorkflowError() == nil {
		t.Fatal("expected workflow failure")
	}

	// Artifacts were already persisted when the flip failed; that is the
	// required order. The draft must be untouched.
	f.store.get(t, snapshot.SnapshotPath(draft.ID, "en"))
	f.store.get(t, snapshot.BackupPath(draft.ID))

	got, err := f.versions.GetByID(dbctx.New(context.Background()), draft.ID)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if got.Status != domain.VersionDraft {
		t.Fatalf("draft status = %q after failed promote", got.Status)
	}
}

func TestRollbackWorkflowRestoresBackup(t *testing.T) {
	f := newFixture(t)
	archived := f.seedVersion(t, domain.VersionArchived)
	live := f.seedVersion(t, domain.VersionLive)

	// Current dataset differs from the backup in keys and languages.
	if err := f.gdb.Create(&domain.Language{Locale: "de", IsDefault: true}).Error; err != nil {
		t.Fatalf("seed language: %v", err)
	}
	if err := f.gdb.Create(&domain.Translation{Key: "gone", Locale: "de", Value: "X"}).Error; err != nil {
		t.Fatalf("seed translation: %v", err)
	}

	blob, err := snapshot.EncodeBackup(snapshot.BackupPayload{
		DefaultLocale: "en",
		Languages: [][]snapshot.Row{
			{{Key: "a", Language: "en", Value: "A"}, {Key: "b", Language: "en", Value: "B"}},
			{{Key: "a", Language: "fr", Value: "Ah"}},
		},
	})
	if err != nil {
		t.Fatalf("encode backup: %v", err)
	}
	if err := f.store.Put(context.Background(), snapshot.BackupPath(archived.ID), blob, gcp.PutOptions{}); err != nil {
		t.Fatalf("store backup: %v", err)
	}

	f.env.ExecuteWorkflow(release.RollbackWorkflow, release.RollbackParams{VersionID: archived.ID})
	if err := f.env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}

	var result release.RollbackResult
	if err := f.env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Languages != 2 || result.Rows != 3 {
		t.Fatalf("restored %d languages / %d rows, want 2 / 3", result.Languages, result.Rows)
	}

	dbc := dbctx.New(context.Background())
	var langs []*domain.Language
	if err := f.gdb.Order("locale").Find(&langs).Error; err != nil {
		t.Fatalf("list languages: %v", err)
	}
	if len(langs) != 2 || langs[0].Locale != "en" || langs[1].Locale != "fr" {
		t.Fatalf("languages = %v", langs)
	}
	if !langs[0].IsDefault || langs[1].IsDefault {
		t.Fatal("default flag not restored onto en")
	}

	// The fr gap must come back as a gap, not as the published fallback.
	var frRows []*domain.Translation
	if err := f.gdb.Where("locale = ?", "fr").Find(&frRows).Error; err != nil {
		t.Fatalf("list fr: %v", err)
	}
	if len(frRows) != 1 || frRows[0].Key != "a" {
		t.Fatalf("fr rows = %v, want only key a", frRows)
	}
	var deCount int64
	if err := f.gdb.Model(&domain.Translation{}).Where("locale = ?", "de").Count(&deCount).Error; err != nil {
		t.Fatalf("count de: %v", err)
	}
	if deCount != 0 {
		t.Fatalf("pre-rollback rows survived the wipe: %d", deCount)
	}

	gotTarget, err := f.versions.GetByID(dbc, archived.ID)
	if err != nil {
		t.Fatalf("get target: %v", err)
	}
	if gotTarget.Status != domain.VersionLive {
		t.Fatalf("target status = %q, want live", gotTarget.Status)
	}
	gotOld, err := f.versions.GetByID(dbc, live.ID)
	if err != nil {
		t.Fatalf("get old live: %v", err)
	}
	if gotOld.Status != domain.VersionArchived {
		t.Fatalf("old live status = %q, want archived", gotOld.Status)
	}
}

func TestRollbackWorkflowRejectsNonArchived(t *testing.T) {
	f := newFixture(t)
	draft := f.seedVersion(t, domain.VersionDraft)
	if err := f.gdb.Create(&domain.Translation{Key: "keep", Locale: "en", Value: "K"}).Error; err != nil {
		t.Fatalf("seed translation: %v", err)
	}

	f.env.ExecuteWorkflow(release.RollbackWorkflow, release.RollbackParams{VersionID: draft.ID})
	err := f.env.GetWorkflowError()
	if err == nil {
		t.Fatal("expected workflow failure")
	}
	if got := appErrType(t, err); got != release.ErrTypeNotArchived {
		t.Fatalf("error type = %q, want %q", got, release.ErrTypeNotArchived)
	}

	// Validation failed before the wipe, so nothing was destroyed.
	var count int64
	if err := f.gdb.Model(&domain.Translation{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("translations = %d after rejected rollback, want 1", count)
	}
}

func TestRollbackWorkflowRestoresDefaultLanguageWithoutRows(t *testing.T) {
	f := newFixture(t)
	archived := f.seedVersion(t, domain.VersionArchived)

	// The default language had no translations of its own at publish time;
	// the envelope still names it and rollback must bring it back as the
	// default.
	blob, err := snapshot.EncodeBackup(snapshot.BackupPayload{
		DefaultLocale: "en",
		Languages: [][]snapshot.Row{
			{},
			{{Key: "a", Language: "fr", Value: "Ah"}},
		},
	})
	if err != nil {
		t.Fatalf("encode backup: %v", err)
	}
	if err := f.store.Put(context.Background(), snapshot.BackupPath(archived.ID), blob, gcp.PutOptions{}); err != nil {
		t.Fatalf("store backup: %v", err)
	}

	f.env.ExecuteWorkflow(release.RollbackWorkflow, release.RollbackParams{VersionID: archived.ID})
	if err := f.env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}

	var langs []*domain.Language
	if err := f.gdb.Order("locale").Find(&langs).Error; err != nil {
		t.Fatalf("list languages: %v", err)
	}
	if len(langs) != 2 || langs[0].Locale != "en" || langs[1].Locale != "fr" {
		t.Fatalf("languages = %v, want en and fr", langs)
	}
	if !langs[0].IsDefault {
		t.Fatal("default language en was lost on rollback")
	}
	if langs[1].IsDefault {
		t.Fatal("fr must not be default")
	}
}

// flakyTranslations delegates to the real repo but sabotages the first
// BatchInsert after a partial write, simulating a worker dying inside the
// wipe-to-reinsert window.
type flakyTranslations struct {
	repos.TranslationRepo
	mu     sync.Mutex
	failed bool
}

func (f *flakyTranslations) BatchInsert(dbc dbctx.Context, rows []*domain.Translation) error {
	f.mu.Lock()
	first := !f.failed
	f.failed = true
	f.mu.Unlock()
	if first {
		if len(rows) > 0 {
			if err := f.TranslationRepo.BatchInsert(dbc, rows[:1]); err != nil {
				return err
			}
		}
		return fmt.Errorf("connection reset during restore")
	}
	return f.TranslationRepo.BatchInsert(dbc, rows)
}

func TestRollbackWorkflowResumesAfterRestoreFailure(t *testing.T) {
	f := newFixture(t)
	archived := f.seedVersion(t, domain.VersionArchived)
	f.seedVersion(t, domain.VersionLive)
	f.acts.Translations = &flakyTranslations{TranslationRepo: f.acts.Translations}

	blob, err := snapshot.EncodeBackup(snapshot.BackupPayload{
		DefaultLocale: "en",
		Languages: [][]snapshot.Row{
			{{Key: "a", Language: "en", Value: "A"}, {Key: "b", Language: "en", Value: "B"}},
			{{Key: "a", Language: "fr", Value: "Ah"}},
		},
	})
	if err != nil {
		t.Fatalf("encode backup: %v", err)
	}
	if err := f.store.Put(context.Background(), snapshot.BackupPath(archived.ID), blob, gcp.PutOptions{}); err != nil {
		t.Fatalf("store backup: %v", err)
	}

	// The first restore attempt writes one row and dies; the retried step
	// must converge to exactly the backup's rows and the promote must still
	// land afterwards.
	f.env.ExecuteWorkflow(release.RollbackWorkflow, release.RollbackParams{VersionID: archived.ID})
	if err := f.env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}

	var result release.RollbackResult
	if err := f.env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Rows != 3 {
		t.Fatalf("restored %d rows, want 3", result.Rows)
	}

	var count int64
	if err := f.gdb.Model(&domain.Translation{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("got %d rows after resumed restore, want 3", count)
	}

	target, err := f.versions.GetByID(dbctx.New(context.Background()), archived.ID)
	if err != nil {
		t.Fatalf("get target: %v", err)
	}
	if target.Status != domain.VersionLive {
		t.Fatalf("target status = %q, want live", target.Status)
	}
}

func TestRollbackWorkflowMissingBackupIsFatal(t *testing.T) {
	f := newFixture(t)
	archived := f.seedVersion(t, domain.VersionArchived)

	f.env.ExecuteWorkflow(release.RollbackWorkflow, release.RollbackParams{VersionID: archived.ID})
	err := f.env.GetWorkflowError()
	if err == nil {
		t.Fatal("expected workflow failure")
	}
	if got := appErrType(t, err); got != release.ErrTypeBackupMissing {
		t.Fatalf("error type = %q, want %q", got, release.ErrTypeBackupMissing)
	}
}
