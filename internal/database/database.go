package database

import (
	"context"
	"fmt"
	"time"

	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize(databaseURL string, environment string) error {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if environment == "development" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	logger.Log.Info("Database connected")

	return nil
}

// Models lists every table the feed engine reads or owns
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.WatchlistEntry{},
		&models.Rating{},
		&models.DismissedTitle{},
		&models.FeedImpression{},
		&models.Activity{},
	}
}

// Migrate runs auto-migration for all models on db
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		createIndexes(db)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

// createIndexes creates Postgres-only performance indexes
func createIndexes(db *gorm.DB) {
	statements := []string{
		// Exclusion set lookups
		"CREATE INDEX IF NOT EXISTS idx_watchlist_entries_user ON watchlist_entries (user_id)",
		"CREATE INDEX IF NOT EXISTS idx_ratings_user ON ratings (user_id)",
		"CREATE INDEX IF NOT EXISTS idx_dismissed_titles_user ON dismissed_titles (user_id)",

		// Batch showable-set query filters by user and card type
		"CREATE INDEX IF NOT EXISTS idx_feed_impressions_user_card ON feed_impressions (user_id, card_type)",

		// Activity feed reads newest first
		"CREATE INDEX IF NOT EXISTS idx_activities_user_time_desc ON activities (user_id, timestamp DESC)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Log.Warn("Failed to create index", zap.String("statement", stmt), zap.Error(err))
		}
	}
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
