package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/watchfeed/internal/database"
	"github.com/zfogg/watchfeed/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database with the engine schema
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// One connection so every goroutine sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func TestTasteRepositoryExclusionSources(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTasteRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&[]models.WatchlistEntry{
		{UserID: "u1", TitleID: "series-1", Status: models.StatusWatching},
		{UserID: "u1", TitleID: "film-2", Status: models.StatusWantToWatch},
		{UserID: "u2", TitleID: "series-9"},
	}).Error)
	require.NoError(t, db.Create(&[]models.Rating{
		{UserID: "u1", TitleID: "series-1", Value: models.RatingLove},
		{UserID: "u1", TitleID: "film-3", Value: models.RatingMeh},
	}).Error)
	require.NoError(t, db.Create(&models.DismissedTitle{UserID: "u1", TitleID: "film-4"}).Error)

	watchlist, err := repo.GetWatchlistTitleIDs(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.TitleID{"series-1", "film-2"}, watchlist)

	rated, err := repo.GetRatedTitleIDs(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.TitleID{"series-1", "film-3"}, rated)

	dismissed, err := repo.GetDismissedTitleIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.TitleID{"film-4"}, dismissed)

	ratings, err := repo.GetRatings(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, ratings, 2)

	_, err = repo.GetWatchlistTitleIDs(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTasteRepositoryUsersAndActivities(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTasteRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&[]models.User{
		{ID: "u1", Username: "ana", DisplayName: "Ana", CreatedAt: base},
		{ID: "u2", Username: "bo", DisplayName: "Bo", CreatedAt: base.Add(time.Hour)},
	}).Error)

	ids, err := repo.GetUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)

	require.NoError(t, db.Create(&[]models.Activity{
		{UserID: "u1", ActivityType: models.ActivityRated, ContentID: "series-1", Timestamp: base},
		{UserID: "u1", ActivityType: models.ActivityFinished, ContentID: "series-1", Timestamp: base.Add(2 * time.Hour)},
		{UserID: "u1", ActivityType: models.ActivityReviewed, ContentID: "film-2", Timestamp: base.Add(4 * time.Hour)},
		{UserID: "u2", ActivityType: models.ActivityRated, ContentID: "film-2", Timestamp: base},
	}).Error)

	all, err := repo.GetActivities(ctx, "u1", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.ActivityReviewed, all[0].ActivityType, "newest first")

	recent, err := repo.GetActivities(ctx, "u1", base.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := repo.GetActivities(ctx, "u1", time.Time{}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestImpressionRepositoryIncrement(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImpressionRepository(db)
	ctx := context.Background()

	key := models.ImpressionKey{UserID: "u1", CardType: models.CardSimilarContent, ContentID: "series-5"}
	_, err := repo.Get(ctx, key)
	assert.ErrorIs(t, err, ErrImpressionNotFound)

	first := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	source := "series-1"
	require.NoError(t, repo.Increment(ctx, key, &source, first))

	row, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, row.ImpressionCount)
	assert.True(t, row.FirstShownAt.Equal(first))
	assert.True(t, row.LastShownAt.Equal(first))
	require.NotNil(t, row.SourceContentID)
	assert.Equal(t, "series-1", *row.SourceContentID)

	second := first.Add(72 * time.Hour)
	other := "series-2"
	require.NoError(t, repo.Increment(ctx, key, &other, second))

	row, err = repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, row.ImpressionCount)
	assert.True(t, row.FirstShownAt.Equal(first), "first_shown_at is never refreshed")
	assert.True(t, row.LastShownAt.Equal(second))
	assert.Equal(t, "series-1", *row.SourceContentID, "first source is kept")

	assert.ErrorIs(t, repo.Increment(ctx, models.ImpressionKey{UserID: "u1"}, nil, second), ErrInvalidInput)
}

func TestImpressionRepositoryConcurrentIncrements(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImpressionRepository(db)
	ctx := context.Background()
	key := models.ImpressionKey{UserID: "u1", CardType: models.CardFollowSuggestion, ContentID: "u7"}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Increment(ctx, key, nil, time.Now()))
		}()
	}
	wg.Wait()

	row, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, n, row.ImpressionCount)
}

func TestImpressionRepositoryListForContent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImpressionRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"film-1", "film-2"} {
		require.NoError(t, repo.Increment(ctx, models.ImpressionKey{UserID: "u1", CardType: models.CardSimilarContent, ContentID: id}, nil, now))
	}
	require.NoError(t, repo.Increment(ctx, models.ImpressionKey{UserID: "u1", CardType: models.CardComingSoon, ContentID: "film-3"}, nil, now))
	require.NoError(t, repo.Increment(ctx, models.ImpressionKey{UserID: "u2", CardType: models.CardSimilarContent, ContentID: "film-1"}, nil, now))

	rows, err := repo.ListForContent(ctx, "u1", models.CardSimilarContent, []string{"film-1", "film-2", "film-3"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.ListForContent(ctx, "u1", models.CardSimilarContent, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
