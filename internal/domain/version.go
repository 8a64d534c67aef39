package domain

import (
	"time"

	"github.com/google/uuid"
)

type VersionStatus string

const (
	VersionDraft    VersionStatus = "draft"
	VersionLive     VersionStatus = "live"
	VersionArchived VersionStatus = "archived"
)

// Version is a point-in-time identity for the published content set.
// At most one row is live and at most one is draft at any time; rows are
// never deleted, only archived.
type Version struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Description string        `gorm:"column:description" json:"description,omitempty"`
	Status      VersionStatus `gorm:"column:status;not null;index" json:"status"`
	CreatedAt   time.Time     `gorm:"not null;index" json:"created_at"`
	CreatedBy   *uuid.UUID    `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`
}

func (Version) TableName() string { return "version" }
