package services_test

import (
	"testing"

	"gorm.io/datatypes"

	"github.com/upbeat-works/edgecms/internal/data/repos"
	"github.com/upbeat-works/edgecms/internal/data/repos/testutil"
	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	"github.com/upbeat-works/edgecms/internal/services"
)

func newContentService(t *testing.T) (services.ContentService, repos.VersionRepo) {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	versions := repos.NewVersionRepo(gdb, log)
	svc := services.NewContentService(
		gdb, log,
		versions,
		repos.NewLanguageRepo(gdb, log),
		repos.NewTranslationRepo(gdb, log),
		repos.NewBlockRepo(gdb, log),
	)
	return svc, versions
}

func TestFirstEditForksDraft(t *testing.T) {
	svc, versions := newContentService(t)
	dbc := dbctx.New(t.Context())

	draft, err := svc.UpsertTranslation(dbc, "en", "home.title", "Welcome", "home", nil)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if draft == nil || draft.Status != domain.VersionDraft {
		t.Fatalf("draft = %+v", draft)
	}

	// A second edit lands in the same draft instead of forking another one.
	again, err := svc.UpsertTranslation(dbc, "en", "home.cta", "Start", "home", nil)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != draft.ID {
		t.Fatalf("second edit forked a new draft: %d != %d", again.ID, draft.ID)
	}

	all, err := versions.List(dbc)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d versions, want 1", len(all))
	}
}

func TestUpsertTranslationValidatesInput(t *testing.T) {
	svc, _ := newContentService(t)
	dbc := dbctx.New(t.Context())

	if _, err := svc.UpsertTranslation(dbc, "", "key", "v", "", nil); err == nil {
		t.Fatal("expected error for empty locale")
	}
	if _, err := svc.UpsertTranslation(dbc, "en", "  ", "v", "", nil); err == nil {
		t.Fatal("expected error for blank key")
	}
}

func TestCreateLanguageFirstBecomesDefault(t *testing.T) {
	svc, _ := newContentService(t)
	dbc := dbctx.New(t.Context())

	first, err := svc.CreateLanguage(dbc, "en", nil)
	if err != nil {
		t.Fatalf("create en: %v", err)
	}
	if !first.IsDefault {
		t.Fatal("first language should be default")
	}

	second, err := svc.CreateLanguage(dbc, "fr", nil)
	if err != nil {
		t.Fatalf("create fr: %v", err)
	}
	if second.IsDefault {
		t.Fatal("second language must not steal the default")
	}
}

func TestBlockEditsForkDraftToo(t *testing.T) {
	svc, versions := newContentService(t)
	dbc := dbctx.New(t.Context())

	if _, err := svc.UpsertBlock(dbc, "hero", datatypes.JSON(`{"heading":"Hi"}`), nil); err != nil {
		t.Fatalf("upsert block: %v", err)
	}

	draft, err := versions.GetLatest(dbc, domain.VersionDraft)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if draft == nil {
		t.Fatal("block edit did not fork a draft")
	}

	got, err := svc.GetBlock(dbc, "hero")
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if got == nil || string(got.Payload) != `{"heading":"Hi"}` {
		t.Fatalf("block = %+v", got)
	}
}
