package release

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// metadataOptions covers cheap store reads and the promote flip: short
// timeout, shallow retry budget.
func metadataOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
}

// bulkOptions covers artifact uploads and full-table mutations: longer
// timeout, deeper retry budget.
func bulkOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	}
}

// ReleaseWorkflow publishes the current draft: snapshot files and a
// recovery backup are written first, and only then does the version table
// flip. A version must never go live before its artifacts exist, because
// the public read path trusts that a live version id has artifacts behind
// it. A failure anywhere before the promote leaves the draft untouched and
// nothing public changes.
func ReleaseWorkflow(ctx workflow.Context) (ReleaseResult, error) {
	log := workflow.GetLogger(ctx)
	var a *Activities

	metaCtx := workflow.WithActivityOptions(ctx, metadataOptions())
	bulkCtx := workflow.WithActivityOptions(ctx, bulkOptions())

	var draft VersionInfo
	if err := workflow.ExecuteActivity(metaCtx, a.GetDraftVersion).Get(ctx, &draft); err != nil {
		return ReleaseResult{}, err
	}
	log.Info("Releasing draft version", "version_id", draft.ID)

	var langs LanguageSet
	if err := workflow.ExecuteActivity(metaCtx, a.GetLanguages).Get(ctx, &langs); err != nil {
		return ReleaseResult{}, err
	}

	var defaultRows LocaleRows
	if err := workflow.ExecuteActivity(metaCtx, a.GetLocaleRows, langs.DefaultLocale).Get(ctx, &defaultRows); err != nil {
		return ReleaseResult{}, err
	}

	// Fan out the non-default locale fetches and join before building files.
	futures := make([]workflow.Future, len(langs.OtherLocales))
	for i, locale := range langs.OtherLocales {
		futures[i] = workflow.ExecuteActivity(metaCtx, a.GetLocaleRows, locale)
	}
	others := make([]LocaleRows, len(langs.OtherLocales))
	for i, f := range futures {
		if err := f.Get(ctx, &others[i]); err != nil {
			return ReleaseResult{}, err
		}
	}

	var fileCount int
	if err := workflow.ExecuteActivity(bulkCtx, a.PersistSnapshots, PersistSnapshotsInput{
		VersionID:     draft.ID,
		DefaultLocale: langs.DefaultLocale,
		DefaultRows:   defaultRows.Rows,
		Others:        others,
	}).Get(ctx, &fileCount); err != nil {
		return ReleaseResult{}, err
	}

	if err := workflow.ExecuteActivity(bulkCtx, a.PersistBackup, PersistBackupInput{
		VersionID:     draft.ID,
		DefaultLocale: langs.DefaultLocale,
		DefaultRows:   defaultRows.Rows,
		Others:        others,
	}).Get(ctx, nil); err != nil {
		return ReleaseResult{}, err
	}

	if err := workflow.ExecuteActivity(metaCtx, a.PromoteToLive, PromoteInput{
		VersionID:      draft.ID,
		ExpectedStatus: "draft",
		EventKind:      "released",
	}).Get(ctx, nil); err != nil {
		return ReleaseResult{}, err
	}

	locales := make([]string, 0, len(langs.OtherLocales)+1)
	locales = append(locales, langs.DefaultLocale)
	locales = append(locales, langs.OtherLocales...)
	log.Info("Release complete", "version_id", draft.ID, "files", fileCount)
	return ReleaseResult{VersionID: draft.ID, Locales: locales}, nil
}
