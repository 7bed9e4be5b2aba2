package models

import (
	"time"

	"gorm.io/gorm"
)

// GroupKeyword is a per-group trigger word for duplicate-question detection
type GroupKeyword struct {
	gorm.Model

	GroupID string `json:"group_id" gorm:"not null;index"`
	Keyword string `json:"keyword" gorm:"not null"`
}

// GroupToken is a time-boxed registration token for a group.
// At most one row per group is kept (upsert on GroupID).
type GroupToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	GroupID   string    `json:"group_id" gorm:"uniqueIndex;not null"`
	Token     string    `json:"token" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsValid reports whether the token can still be used at the given time
func (t *GroupToken) IsValid(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}
