package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zfogg/watchfeed/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrImpressionNotFound = errors.New("impression not found")
)

// ImpressionRepository is the relational exposure ledger
type ImpressionRepository interface {
	Get(ctx context.Context, key models.ImpressionKey) (*models.FeedImpression, error)
	ListForContent(ctx context.Context, userID string, cardType models.CardType, contentIDs []string) ([]models.FeedImpression, error)
	Increment(ctx context.Context, key models.ImpressionKey, sourceContentID *string, shownAt time.Time) error
}

type impressionRepository struct {
	db *gorm.DB
}

// NewImpressionRepository creates a ledger backed by the feed_impressions table
func NewImpressionRepository(db *gorm.DB) ImpressionRepository {
	return &impressionRepository{db: db}
}

// Get returns the ledger row for key or ErrImpressionNotFound
func (r *impressionRepository) Get(ctx context.Context, key models.ImpressionKey) (*models.FeedImpression, error) {
	var row models.FeedImpression
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND card_type = ? AND content_id = ?", key.UserID, key.CardType, key.ContentID).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImpressionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListForContent fetches all rows for one user and card type whose content id is in contentIDs
func (r *impressionRepository) ListForContent(ctx context.Context, userID string, cardType models.CardType, contentIDs []string) ([]models.FeedImpression, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}

	var rows []models.FeedImpression
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND card_type = ? AND content_id IN ?", userID, cardType, contentIDs).
		Find(&rows).Error
	return rows, err
}

// Increment records one display of key at shownAt. The first call inserts the
// row with count 1; later calls bump the count in the same statement
// (INSERT ... ON CONFLICT DO UPDATE), so concurrent displays never lose an update.
func (r *impressionRepository) Increment(ctx context.Context, key models.ImpressionKey, sourceContentID *string, shownAt time.Time) error {
	if key.UserID == "" || key.CardType == "" || key.ContentID == "" {
		return ErrInvalidInput
	}

	shownAt = shownAt.UTC()
	row := models.FeedImpression{
		UserID:          key.UserID,
		CardType:        key.CardType,
		ContentID:       key.ContentID,
		ImpressionCount: 1,
		FirstShownAt:    shownAt,
		LastShownAt:     shownAt,
		SourceContentID: sourceContentID,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "card_type"}, {Name: "content_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"impression_count":  gorm.Expr("feed_impressions.impression_count + 1"),
			"last_shown_at":     shownAt,
			"updated_at":        shownAt,
			"source_content_id": gorm.Expr("COALESCE(feed_impressions.source_content_id, excluded.source_content_id)"),
		}),
	}).Create(&row).Error
}
