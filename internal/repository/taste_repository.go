package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zfogg/watchfeed/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// TasteRepository handles the read-side queries the feed engine runs
// against a user's tracked, rated and dismissed titles
type TasteRepository interface {
	// Exclusion sources
	GetWatchlistTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error)
	GetRatedTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error)
	GetDismissedTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error)

	// Taste profiles
	GetRatings(ctx context.Context, userID string) ([]models.Rating, error)
	GetUserIDs(ctx context.Context) ([]string, error)

	// Activity stream
	GetActivities(ctx context.Context, userID string, since time.Time, limit int) ([]models.Activity, error)
}

// tasteRepository implements TasteRepository on gorm
type tasteRepository struct {
	db *gorm.DB
}

// NewTasteRepository creates a new taste repository
func NewTasteRepository(db *gorm.DB) TasteRepository {
	return &tasteRepository{db: db}
}

// GetWatchlistTitleIDs returns every title on the user's watch list, any status
func (r *tasteRepository) GetWatchlistTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error) {
	return r.pluckTitleIDs(ctx, &models.WatchlistEntry{}, userID)
}

// GetRatedTitleIDs returns every title the user has rated
func (r *tasteRepository) GetRatedTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error) {
	return r.pluckTitleIDs(ctx, &models.Rating{}, userID)
}

// GetDismissedTitleIDs returns every title the user dismissed
func (r *tasteRepository) GetDismissedTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error) {
	return r.pluckTitleIDs(ctx, &models.DismissedTitle{}, userID)
}

func (r *tasteRepository) pluckTitleIDs(ctx context.Context, model interface{}, userID string) ([]models.TitleID, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	var ids []models.TitleID
	err := r.db.WithContext(ctx).
		Model(model).
		Where("user_id = ?", userID).
		Pluck("title_id", &ids).Error
	return ids, err
}

// GetRatings returns all rating rows for a user
func (r *tasteRepository) GetRatings(ctx context.Context, userID string) ([]models.Rating, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	var ratings []models.Rating
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&ratings).Error
	return ratings, err
}

// GetUserIDs returns the ids of every active user, oldest account first
func (r *tasteRepository) GetUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Order("created_at ASC, id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// GetActivities returns a user's raw activity records since the given time,
// newest first. A zero since means no lower bound; limit <= 0 means no limit.
func (r *tasteRepository) GetActivities(ctx context.Context, userID string, since time.Time, limit int) ([]models.Activity, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !since.IsZero() {
		query = query.Where("timestamp >= ?", since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var activities []models.Activity
	err := query.Order("timestamp DESC").Find(&activities).Error
	return activities, err
}
