package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Language is a publishable locale. Exactly one row has IsDefault set
// whenever any row exists; the default locale backfills missing
// translations in published snapshots.
type Language struct {
	Locale    string `gorm:"primaryKey" json:"locale"`
	IsDefault bool   `gorm:"column:is_default;not null;default:false" json:"default"`
}

func (Language) TableName() string { return "language" }

// Translation is one localized string, keyed by (key, locale).
type Translation struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Locale    string    `gorm:"primaryKey;index" json:"locale"`
	Value     string    `gorm:"column:value;not null" json:"value"`
	Section   string    `gorm:"column:section;index" json:"section,omitempty"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Translation) TableName() string { return "translation" }

// BlockInstance is a keyed piece of structured draft content. It lives at
// the editing boundary; the release pipeline only cares that editing one
// forks a draft version first.
type BlockInstance struct {
	Key       string         `gorm:"primaryKey" json:"key"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (BlockInstance) TableName() string { return "block_instance" }
