package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/zfogg/watchfeed/internal/config"
	"github.com/zfogg/watchfeed/internal/database"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/seed"
)

// parseCommand splits the leading subcommand from the flags; no subcommand means dev
func parseCommand(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "dev", args
}

func main() {
	command, args := parseCommand(os.Args[1:])

	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	users := fs.Int("users", 200, "number of users to create (dev)")
	randSeed := fs.Int64("seed", 0, "random seed (0 = time based)")
	asJSON := fs.Bool("json", false, "print the verify report as JSON")
	_ = fs.Parse(args)

	switch command {
	case "dev", "test", "clean", "verify":
	default:
		fmt.Println("Usage: seed [dev|test|clean|verify] [-users N] [-seed N] [-json]")
		fmt.Println("  dev   - Seed development database with a random population")
		fmt.Println("  test  - Seed test database with a small fixed population")
		fmt.Println("  clean - Remove all feed data (use with caution)")
		fmt.Println("  verify - Count seeded records and check their owners")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Printf("Warning: failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if err := database.Initialize(cfg.Database.URL, cfg.Environment); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("✅ Database connected")

	seeder := seed.NewSeeder(database.DB, *randSeed)

	switch command {
	case "dev":
		log.Println("🌱 Seeding development database...")
		err = seeder.SeedDev(*users)
	case "test":
		log.Println("🧪 Seeding test database...")
		err = seeder.SeedTest()
	case "clean":
		log.Println("🧹 Cleaning seed data...")
		err = seeder.Clean()
	case "verify":
		err = verify(seeder, *asJSON)
	}
	if err != nil {
		log.Fatalf("❌ Seed %s failed: %v", command, err)
	}

	log.Printf("✅ Seed %s completed successfully!", command)
}

func verify(seeder *seed.Seeder, asJSON bool) error {
	r, err := seeder.Verify()
	if err != nil {
		return err
	}

	if asJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Println("📊 Record Counts:")
		fmt.Printf("  Users:        %d\n", r.Users)
		fmt.Printf("  Watch-list:   %d\n", r.Watchlist)
		fmt.Printf("  Ratings:      %d\n", r.Ratings)
		fmt.Printf("  Dismissed:    %d\n", r.Dismissed)
		fmt.Printf("  Activities:   %d\n", r.Activities)
		fmt.Printf("  Impressions:  %d\n", r.Impressions)
		fmt.Println()

		fmt.Println("📝 Sample Users:")
		for _, u := range r.SampleUsers {
			fmt.Printf("    - @%s\n", u)
		}
		fmt.Println("  Top Rated:")
		for _, t := range r.TopRated {
			fmt.Printf("    - %s (%d ratings)\n", t.TitleID, t.Count)
		}
		fmt.Println()

		fmt.Println("🔗 Relationship Verification:")
		fmt.Printf("  Orphan ratings:    %d\n", r.OrphanRatings)
		fmt.Printf("  Orphan activities: %d\n", r.OrphanActivities)
	}

	if !r.Healthy() {
		return fmt.Errorf("seed data is empty or inconsistent")
	}
	return nil
}
