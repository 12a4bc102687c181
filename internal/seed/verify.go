package seed

import (
	"fmt"

	"github.com/zfogg/watchfeed/internal/models"
)

// TitleCount is a title and how many users rated it
type TitleCount struct {
	TitleID models.TitleID `json:"title_id"`
	Count   int64          `json:"count"`
}

// Report summarizes what is in the feed tables
type Report struct {
	Users       int64        `json:"users"`
	Watchlist   int64        `json:"watchlist_entries"`
	Ratings     int64        `json:"ratings"`
	Dismissed   int64        `json:"dismissed_titles"`
	Activities  int64        `json:"activities"`
	Impressions int64        `json:"feed_impressions"`
	SampleUsers []string     `json:"sample_users"`
	TopRated    []TitleCount `json:"top_rated"`

	// Ratings and activities whose user row is missing
	OrphanRatings    int64 `json:"orphan_ratings"`
	OrphanActivities int64 `json:"orphan_activities"`
}

// Healthy reports whether the seeded data is populated and consistent
func (r *Report) Healthy() bool {
	return r.Users > 0 && r.OrphanRatings == 0 && r.OrphanActivities == 0
}

// Verify counts seeded records and checks their relationships
func (s *Seeder) Verify() (*Report, error) {
	r := &Report{}

	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.User{}, &r.Users},
		{&models.WatchlistEntry{}, &r.Watchlist},
		{&models.Rating{}, &r.Ratings},
		{&models.DismissedTitle{}, &r.Dismissed},
		{&models.Activity{}, &r.Activities},
		{&models.FeedImpression{}, &r.Impressions},
	}
	for _, c := range counts {
		if err := s.db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count %T: %w", c.model, err)
		}
	}

	if err := s.db.Model(&models.User{}).Order("username").Limit(3).Pluck("username", &r.SampleUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to sample users: %w", err)
	}

	if err := s.db.Model(&models.Rating{}).
		Select("title_id, COUNT(*) AS count").
		Group("title_id").
		Order("count DESC, title_id").
		Limit(5).
		Scan(&r.TopRated).Error; err != nil {
		return nil, fmt.Errorf("failed to rank rated titles: %w", err)
	}

	orphans := "user_id NOT IN (SELECT id FROM users WHERE deleted_at IS NULL)"
	if err := s.db.Model(&models.Rating{}).Where(orphans).Count(&r.OrphanRatings).Error; err != nil {
		return nil, fmt.Errorf("failed to check rating owners: %w", err)
	}
	if err := s.db.Model(&models.Activity{}).Where(orphans).Count(&r.OrphanActivities).Error; err != nil {
		return nil, fmt.Errorf("failed to check activity owners: %w", err)
	}

	return r, nil
}
