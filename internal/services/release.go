package services

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	pkgerrors "github.com/upbeat-works/edgecms/internal/pkg/errors"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
	"github.com/upbeat-works/edgecms/internal/temporalx"
	"github.com/upbeat-works/edgecms/internal/temporalx/release"
)

// ReleaseRun identifies an enqueued workflow execution. Enqueueing only
// confirms the workflow started; success or failure is observed
// asynchronously via CurrentRun or the version table.
type ReleaseRun struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

type RunStatus struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
}

type ReleaseService interface {
	// EnqueueRelease starts the release workflow for the current draft.
	// Returns ErrReleaseInFlight when a release or rollback is running.
	EnqueueRelease(ctx context.Context) (*ReleaseRun, error)
	// EnqueueRollback starts the rollback workflow for an archived version.
	EnqueueRollback(ctx context.Context, versionID int64) (*ReleaseRun, error)
	// CurrentRun reports the most recent release/rollback execution, or nil
	// when none has ever run.
	CurrentRun(ctx context.Context) (*RunStatus, error)
}

type releaseService struct {
	log *logger.Logger
	tc  temporalsdkclient.Client
	cfg temporalx.Config
}

func NewReleaseService(baseLog *logger.Logger, tc temporalsdkclient.Client) (ReleaseService, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return &releaseService{
		log: baseLog.With("service", "ReleaseService"),
		tc:  tc,
		cfg: temporalx.LoadConfig(),
	}, nil
}

func (s *releaseService) EnqueueRelease(ctx context.Context) (*ReleaseRun, error) {
	return s.start(ctx, release.WorkflowRelease, nil)
}

func (s *releaseService) EnqueueRollback(ctx context.Context, versionID int64) (*ReleaseRun, error) {
	if versionID <= 0 {
		return nil, fmt.Errorf("version id must be positive: %w", pkgerrors.ErrInvalidArgument)
	}
	return s.start(ctx, release.WorkflowRollback, release.RollbackParams{VersionID: versionID})
}

// start launches a workflow under the shared singleton ID so that at most
// one release or rollback is in flight at a time.
func (s *releaseService) start(ctx context.Context, workflowName string, params any) (*ReleaseRun, error) {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:        release.SingletonWorkflowID,
		TaskQueue: s.cfg.TaskQueue,
	}

	var (
		run temporalsdkclient.WorkflowRun
		err error
	)
	if params == nil {
		run, err = s.tc.ExecuteWorkflow(ctx, opts, workflowName)
	} else {
		run, err = s.tc.ExecuteWorkflow(ctx, opts, workflowName, params)
	}
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			return nil, pkgerrors.ErrReleaseInFlight
		}
		return nil, fmt.Errorf("enqueue %s: %w", workflowName, err)
	}

	s.log.Info("Workflow enqueued", "workflow", workflowName, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return &ReleaseRun{WorkflowID: run.GetID(), RunID: run.GetRunID()}, nil
}

func (s *releaseService) CurrentRun(ctx context.Context) (*RunStatus, error) {
	desc, err := s.tc.DescribeWorkflowExecution(ctx, release.SingletonWorkflowID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("describe release workflow: %w", err)
	}
	info := desc.GetWorkflowExecutionInfo()
	if info == nil {
		return nil, nil
	}
	return &RunStatus{
		WorkflowID: info.GetExecution().GetWorkflowId(),
		RunID:      info.GetExecution().GetRunId(),
		Status:     info.GetStatus().String(),
	}, nil
}
