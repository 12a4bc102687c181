package main

import (
	"fmt"
	"log"
	"os"

	"github.com/zfogg/watchfeed/internal/config"
	"github.com/zfogg/watchfeed/internal/database"
	"github.com/zfogg/watchfeed/internal/logger"
	"gorm.io/gorm"
)

func main() {
	// Parse command
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		runStatus()
	default:
		fmt.Println("Usage: migrate [up|status]")
		fmt.Println("  up     - Create or update the feed engine tables and indexes")
		fmt.Println("  status - Report which feed engine tables exist")
		os.Exit(1)
	}
}

func connect() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Printf("Warning: failed to initialize logger: %v", err)
	}

	log.Println("🔄 Connecting to database...")
	if err := database.Initialize(cfg.Database.URL, cfg.Environment); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connected")
}

func runMigrationsUp() {
	connect()
	defer logger.Close()
	defer database.Close()

	log.Println("📈 Running migrations...")

	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ All migrations completed successfully!")
}

func runStatus() {
	connect()
	defer logger.Close()
	defer database.Close()

	missing := 0
	for _, model := range database.Models() {
		stmt := &gorm.Statement{DB: database.DB}
		if err := stmt.Parse(model); err != nil {
			log.Fatalf("❌ Failed to parse model %T: %v", model, err)
		}
		if database.DB.Migrator().HasTable(model) {
			fmt.Printf("  ✅ %s\n", stmt.Schema.Table)
			continue
		}
		fmt.Printf("  ❌ %s (missing)\n", stmt.Schema.Table)
		missing++
	}

	if missing > 0 {
		log.Printf("⚠️  %d table(s) missing, run: migrate up", missing)
		os.Exit(1)
	}
}
