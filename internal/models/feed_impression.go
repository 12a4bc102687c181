package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedImpression is one row of the exposure ledger: how often and when a
// non-organic card for a piece of content was shown to a user.
// Keyed uniquely on (user_id, card_type, content_id).
type FeedImpression struct {
	ID        string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string   `gorm:"type:varchar(36);not null;uniqueIndex:idx_feed_impressions_key,priority:1" json:"user_id"`
	CardType  CardType `gorm:"type:varchar(32);not null;uniqueIndex:idx_feed_impressions_key,priority:2" json:"card_type"`
	ContentID string   `gorm:"type:varchar(64);not null;uniqueIndex:idx_feed_impressions_key,priority:3" json:"content_id"`

	ImpressionCount int       `gorm:"not null;default:1" json:"impression_count"`
	FirstShownAt    time.Time `gorm:"not null" json:"first_shown_at"`
	LastShownAt     time.Time `gorm:"not null;index" json:"last_shown_at"`

	// The title that triggered the card, if any
	SourceContentID *string `gorm:"type:varchar(64)" json:"source_content_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (FeedImpression) TableName() string {
	return "feed_impressions"
}

func (f *FeedImpression) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// ImpressionKey identifies a ledger row
type ImpressionKey struct {
	UserID    string   `json:"user_id" validate:"required"`
	CardType  CardType `json:"card_type" validate:"required"`
	ContentID string   `json:"content_id" validate:"required"`
}
