package release

import (
	"go.temporal.io/sdk/workflow"

	"github.com/upbeat-works/edgecms/internal/snapshot"
)

// RollbackWorkflow restores an archived version by replaying its backup:
// validate target, fetch and decode the blob, wipe the live dataset,
// reinsert from backup, then promote. The wipe-to-reinsert span is the
// highest-severity failure window in the system: a crash there leaves the
// dataset empty until Temporal resumes the step, which is repeat-safe.
func RollbackWorkflow(ctx workflow.Context, params RollbackParams) (RollbackResult, error) {
	log := workflow.GetLogger(ctx)
	var a *Activities

	metaCtx := workflow.WithActivityOptions(ctx, metadataOptions())
	bulkCtx := workflow.WithActivityOptions(ctx, bulkOptions())

	var target VersionInfo
	if err := workflow.ExecuteActivity(metaCtx, a.GetArchivedVersion, params.VersionID).Get(ctx, &target); err != nil {
		return RollbackResult{}, err
	}
	log.Info("Rolling back to version", "version_id", target.ID)

	var blob []byte
	if err := workflow.ExecuteActivity(bulkCtx, a.FetchBackup, target.ID).Get(ctx, &blob); err != nil {
		return RollbackResult{}, err
	}

	var payload snapshot.BackupPayload
	if err := workflow.ExecuteActivity(metaCtx, a.DecodeBackupBlob, blob).Get(ctx, &payload); err != nil {
		return RollbackResult{}, err
	}

	if err := workflow.ExecuteActivity(bulkCtx, a.WipeContent).Get(ctx, nil); err != nil {
		return RollbackResult{}, err
	}

	var langCount int
	if err := workflow.ExecuteActivity(bulkCtx, a.RestoreLanguages, payload).Get(ctx, &langCount); err != nil {
		return RollbackResult{}, err
	}

	var rowCount int
	if err := workflow.ExecuteActivity(bulkCtx, a.RestoreTranslations, payload).Get(ctx, &rowCount); err != nil {
		return RollbackResult{}, err
	}

	if err := workflow.ExecuteActivity(metaCtx, a.PromoteToLive, PromoteInput{
		VersionID:      target.ID,
		ExpectedStatus: "archived",
		EventKind:      "rolled_back",
	}).Get(ctx, nil); err != nil {
		return RollbackResult{}, err
	}

	log.Info("Rollback complete", "version_id", target.ID, "languages", langCount, "rows", rowCount)
	return RollbackResult{VersionID: target.ID, Languages: langCount, Rows: rowCount}, nil
}
