package release

import "github.com/upbeat-works/edgecms/internal/snapshot"

const (
	WorkflowRelease  = "content_release"
	WorkflowRollback = "content_rollback"

	// SingletonWorkflowID serializes release and rollback: both workflows
	// start under this ID, so Temporal rejects a second enqueue while one
	// is running. Promote keeps its own status guard on top of this.
	SingletonWorkflowID = "content-release-singleton"
)

// Application error types for fatal business failures. These abort the
// workflow without retry.
const (
	ErrTypeNoDraft           = "no_draft"
	ErrTypeNoDefaultLanguage = "no_default_language"
	ErrTypeNotArchived       = "not_archived"
	ErrTypeBackupMissing     = "backup_missing"
	ErrTypeBackupMalformed   = "backup_malformed"
	ErrTypeStatusConflict    = "status_conflict"
)

type VersionInfo struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

type LanguageSet struct {
	DefaultLocale string   `json:"default_locale"`
	OtherLocales  []string `json:"other_locales"`
}

type LocaleRows struct {
	Locale string         `json:"locale"`
	Rows   []snapshot.Row `json:"rows"`
}

type PersistSnapshotsInput struct {
	VersionID     int64          `json:"version_id"`
	DefaultLocale string         `json:"default_locale"`
	DefaultRows   []snapshot.Row `json:"default_rows"`
	Others        []LocaleRows   `json:"others"`
}

type PersistBackupInput struct {
	VersionID     int64          `json:"version_id"`
	DefaultLocale string         `json:"default_locale"`
	DefaultRows   []snapshot.Row `json:"default_rows"`
	Others        []LocaleRows   `json:"others"`
}

type PromoteInput struct {
	VersionID      int64  `json:"version_id"`
	ExpectedStatus string `json:"expected_status"`
	EventKind      string `json:"event_kind"`
}

type ReleaseResult struct {
	VersionID int64    `json:"version_id"`
	Locales   []string `json:"locales"`
}

type RollbackParams struct {
	VersionID int64 `json:"version_id"`
}

type RollbackResult struct {
	VersionID int64 `json:"version_id"`
	Languages int   `json:"languages"`
	Rows      int   `json:"rows"`
}
