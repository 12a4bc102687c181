package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity is a single raw action from a user's activity stream.
// Records that were submitted together share a GroupID.
type Activity struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string       `gorm:"type:varchar(36);not null;index:idx_activities_user_time,priority:1" json:"user_id"`
	ActivityType ActivityType `gorm:"type:varchar(32);not null" json:"activity_type"`
	ContentID    string       `gorm:"type:varchar(64);not null" json:"content_id"`
	Timestamp    time.Time    `gorm:"not null;index:idx_activities_user_time,priority:2" json:"timestamp"`
	GroupID      *string      `gorm:"type:varchar(36);index" json:"group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name
func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
