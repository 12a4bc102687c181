package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the minimal account row the feed engine needs: the population
// scanned by taste matching. Profile and auth fields live elsewhere.
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// WatchlistEntry is a title a user tracks, with its current status
type WatchlistEntry struct {
	ID      string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID  string      `gorm:"not null;uniqueIndex:idx_watchlist_user_title" json:"user_id"`
	TitleID TitleID     `gorm:"type:varchar(64);not null;uniqueIndex:idx_watchlist_user_title" json:"title_id"`
	Status  WatchStatus `gorm:"type:varchar(32);not null;default:'want_to_watch'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rating is a user's meh/like/love verdict on a title
type Rating struct {
	ID      string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID  string      `gorm:"not null;uniqueIndex:idx_ratings_user_title" json:"user_id"`
	TitleID TitleID     `gorm:"type:varchar(64);not null;uniqueIndex:idx_ratings_user_title" json:"title_id"`
	Value   RatingValue `gorm:"type:varchar(8);not null" json:"value"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DismissedTitle records that a user asked never to be recommended a title
type DismissedTitle struct {
	ID      string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID  string  `gorm:"not null;uniqueIndex:idx_dismissed_user_title" json:"user_id"`
	TitleID TitleID `gorm:"type:varchar(64);not null;uniqueIndex:idx_dismissed_user_title" json:"title_id"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hooks for GORM
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (w *WatchlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = StatusWantToWatch
	}
	return nil
}

func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (d *DismissedTitle) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name
func (WatchlistEntry) TableName() string {
	return "watchlist_entries"
}

// TableName specifies the table name
func (DismissedTitle) TableName() string {
	return "dismissed_titles"
}
