package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Well-known catalog ids used for seeded titles, grouped into loose taste
// clusters so seeded users produce a spread of match scores
var tasteClusters = [][]models.TitleID{
	// prestige drama
	{"series-1399", "series-1396", "series-60059", "series-87108", "film-238", "film-240", "film-424"},
	// sci-fi
	{"series-66732", "series-95396", "series-63174", "film-157336", "film-603", "film-78", "film-335984"},
	// comedy
	{"series-2316", "series-1400", "series-1668", "series-136315", "film-115", "film-8363", "film-120467"},
	// animation
	{"series-246", "series-94605", "series-60625", "film-129", "film-324857", "film-8587", "film-12"},
}

var ratingValues = []models.RatingValue{models.RatingMeh, models.RatingLike, models.RatingLove}

var watchStatuses = []models.WatchStatus{
	models.StatusWantToWatch, models.StatusWatching, models.StatusWatched, models.StatusDropped,
}

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
	now func() time.Time
}

// NewSeeder creates a new seeder instance. A zero seed picks one from the clock.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Seed returns an error only for invalid sources
	_ = gofakeit.Seed(seed)
	return &Seeder{db: db, rng: rand.New(rand.NewSource(seed)), now: time.Now}
}

// SeedDev seeds a development database with a random population
func (s *Seeder) SeedDev(userCount int) error {
	logger.Log.Info("Creating users...", zap.Int("count", userCount))
	users, err := s.seedUsers(userCount)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating watch lists, ratings and activity...")
	for _, u := range users {
		if err := s.seedTaste(u); err != nil {
			return fmt.Errorf("failed to seed taste for %s: %w", u.Username, err)
		}
	}
	return nil
}

// SeedTest seeds a small fixed population with known overlaps
func (s *Seeder) SeedTest() error {
	fixtures := []struct {
		username    string
		displayName string
		cluster     int
	}{
		{"alice", "Alice Smith", 0},
		{"bob", "Bob Johnson", 0},
		{"charlie", "Charlie Brown", 1},
		{"diana", "Diana Prince", 2},
		{"eve", "Eve Wilson", 3},
	}

	for _, fx := range fixtures {
		var user models.User
		err := s.db.Where("username = ?", fx.username).First(&user).Error
		if err == nil {
			continue
		}
		user = models.User{Username: fx.username, DisplayName: fx.displayName}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", fx.username, err)
		}

		start := s.now().Add(-24 * time.Hour)
		for i, title := range tasteClusters[fx.cluster][:4] {
			at := start.Add(time.Duration(i) * time.Hour)
			if err := s.addRated(user.ID, title, models.RatingLove, models.StatusWatched, at); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clean removes all seed data (use with caution!)
func (s *Seeder) Clean() error {
	// Delete in reverse order of dependencies
	for _, table := range []string{"activities", "feed_impressions", "dismissed_titles", "ratings", "watchlist_entries", "users"} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	taken := make(map[string]bool)

	for len(users) < count {
		username := strings.ToLower(gofakeit.Username())
		if taken[username] {
			continue
		}
		var existing int64
		s.db.Model(&models.User{}).Where("username = ?", username).Count(&existing)
		if existing > 0 {
			taken[username] = true
			continue
		}
		taken[username] = true
		users = append(users, models.User{Username: username, DisplayName: gofakeit.Name()})
	}

	if err := s.db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// seedTaste gives a user a watch list mostly drawn from one cluster, with a
// few titles from elsewhere, and rates about two thirds of it
func (s *Seeder) seedTaste(user models.User) error {
	home := tasteClusters[s.rng.Intn(len(tasteClusters))]
	picks := make(models.TitleSet)
	for _, t := range home {
		if s.rng.Float64() < 0.7 {
			picks.Add(t)
		}
	}
	for i := 0; i < 3; i++ {
		other := tasteClusters[s.rng.Intn(len(tasteClusters))]
		picks.Add(other[s.rng.Intn(len(other))])
	}

	end := s.now()
	start := end.AddDate(0, -3, 0)
	for _, title := range picks.Slice() {
		at := gofakeit.DateRange(start, end)
		status := watchStatuses[s.rng.Intn(len(watchStatuses))]

		switch roll := s.rng.Float64(); {
		case roll < 0.65:
			rating := ratingValues[s.rng.Intn(len(ratingValues))]
			if err := s.addRated(user.ID, title, rating, status, at); err != nil {
				return err
			}
		case roll < 0.9:
			if err := s.addWatchlist(user.ID, title, status, at); err != nil {
				return err
			}
		default:
			if err := s.db.Create(&models.DismissedTitle{UserID: user.ID, TitleID: title, CreatedAt: at}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) addWatchlist(userID string, title models.TitleID, status models.WatchStatus, at time.Time) error {
	entry := models.WatchlistEntry{UserID: userID, TitleID: title, Status: status, CreatedAt: at, UpdatedAt: at}
	if err := s.db.Create(&entry).Error; err != nil {
		return err
	}
	return s.db.Create(&models.Activity{
		UserID:       userID,
		ActivityType: models.ActivityAddedToWatchlist,
		ContentID:    string(title),
		Timestamp:    at,
	}).Error
}

// addRated writes a rating submitted together with a status change, the way
// the app records them: two activities sharing one group id
func (s *Seeder) addRated(userID string, title models.TitleID, value models.RatingValue, status models.WatchStatus, at time.Time) error {
	entry := models.WatchlistEntry{UserID: userID, TitleID: title, Status: status, CreatedAt: at, UpdatedAt: at}
	if err := s.db.Create(&entry).Error; err != nil {
		return err
	}
	if err := s.db.Create(&models.Rating{UserID: userID, TitleID: title, Value: value, CreatedAt: at, UpdatedAt: at}).Error; err != nil {
		return err
	}

	groupID := uuid.NewString()
	return s.db.Create(&[]models.Activity{
		{UserID: userID, ActivityType: models.ActivityRated, ContentID: string(title), Timestamp: at, GroupID: &groupID},
		{UserID: userID, ActivityType: models.ActivityStatusChanged, ContentID: string(title), Timestamp: at.Add(time.Second), GroupID: &groupID},
	}).Error
}
