package kernel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/watchfeed/internal/config"
	"github.com/zfogg/watchfeed/internal/database"
	"github.com/zfogg/watchfeed/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		Port:              "8787",
		Database:          config.DatabaseConfig{URL: "sqlite://memory"},
		ImpressionBackend: "postgres",
		Catalog:           config.CatalogConfig{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 4, Timeout: time.Second},
		Throttle:          config.ThrottleConfig{MaxImpressions: 3, CooldownDays: 1},
		Similar:           config.SimilarConfig{MinVoteCount: 50, Limit: 10, MaxPages: 2},
		Activity:          config.ActivityConfig{GroupWindow: 5 * time.Minute},
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestNewWiresEngines(t *testing.T) {
	db := setupTestDB(t)
	k := New(testConfig(), db, nil)

	require.NoError(t, k.Validate())
	assert.Equal(t, "postgres", k.ImpressionBackend())
	assert.Equal(t, 3, k.Throttle().Defaults().MaxImpressions)
	assert.Equal(t, 1, k.Throttle().Defaults().CooldownDays)
	assert.Equal(t, 5*time.Minute, k.Config().Activity.GroupWindow)

	ctx := context.Background()
	require.NoError(t, db.Create(&models.DismissedTitle{UserID: "u1", TitleID: "film-9"}).Error)
	set, err := k.Exclusions().Build(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, set.Has("film-9"))

	key := models.ImpressionKey{UserID: "u1", CardType: models.CardFollowSuggestion, ContentID: "u2"}
	require.NoError(t, k.Throttle().RecordImpression(ctx, key, ""))
	ok, err := k.Throttle().ShouldShow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, k.Health(ctx)["postgres"])
}

func TestValidateRedisBackendNeedsClient(t *testing.T) {
	cfg := testConfig()
	cfg.ImpressionBackend = "redis"
	k := New(cfg, setupTestDB(t), nil)

	// Falls back to the relational ledger but refuses to validate
	assert.Equal(t, "postgres", k.ImpressionBackend())
	var initErr *InitializationError
	require.ErrorAs(t, k.Validate(), &initErr)
	assert.Len(t, initErr.MissingDeps, 1)
}

func TestCleanupRunsLIFO(t *testing.T) {
	k := New(testConfig(), setupTestDB(t), nil)
	var order []int
	k.OnCleanup(func(context.Context) error { order = append(order, 1); return nil })
	k.OnCleanup(func(context.Context) error { order = append(order, 2); return errors.New("boom") })
	k.OnCleanup(func(context.Context) error { order = append(order, 3); return nil })

	err := k.Cleanup(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestServiceValidator(t *testing.T) {
	cfg := testConfig()
	cfg.RequiredServices = []string{"postgres"}
	k := New(cfg, setupTestDB(t), nil)
	assert.NoError(t, k.ServiceValidator().ValidateServices(context.Background()))

	cfg.RequiredServices = []string{"redis"}
	assert.Error(t, k.ServiceValidator().ValidateServices(context.Background()))
}
