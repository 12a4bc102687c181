package tastematch

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/zfogg/watchfeed/internal/errors"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/metrics"
	"github.com/zfogg/watchfeed/internal/models"
	"github.com/zfogg/watchfeed/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultWorkers = 8

// ProfileSource is the part of the taste repository profiles are built from
type ProfileSource interface {
	GetWatchlistTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error)
	GetRatings(ctx context.Context, userID string) ([]models.Rating, error)
	GetUserIDs(ctx context.Context) ([]string, error)
}

// UserMatch is one entry of a similar-users scan
type UserMatch struct {
	UserID string `json:"user_id"`
	MatchResult
}

// FindOptions filter a similar-users scan
type FindOptions struct {
	// MinScore keeps matches scoring strictly above it
	MinScore         int
	MinSharedRatings int
	// Limit caps the number of matches; 0 means no cap
	Limit int
}

// Service loads taste profiles and compares them
type Service struct {
	source  ProfileSource
	workers int
}

// NewService creates a taste match service
func NewService(source ProfileSource) *Service {
	return &Service{source: source, workers: defaultWorkers}
}

// LoadProfile builds a user's profile from their watch list and ratings.
// A failing source is logged and contributes nothing.
func (s *Service) LoadProfile(ctx context.Context, userID string) Profile {
	profile := Profile{
		UserID:  userID,
		Watched: make(models.TitleSet),
		Ratings: make(map[models.TitleID]models.RatingValue),
	}

	var (
		wg        sync.WaitGroup
		watchlist []models.TitleID
		ratings   []models.Rating
		wlErr     error
		ratingErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		watchlist, wlErr = s.source.GetWatchlistTitleIDs(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		ratings, ratingErr = s.source.GetRatings(ctx, userID)
	}()
	wg.Wait()

	if wlErr != nil {
		logger.WarnWithFields("Watch list unavailable for taste profile", wlErr,
			logger.WithUserID(userID), logger.WithSource("watchlist"))
		metrics.Get().StoreFailures.WithLabelValues("taste_watchlist", "read").Inc()
	}
	if ratingErr != nil {
		logger.WarnWithFields("Ratings unavailable for taste profile", ratingErr,
			logger.WithUserID(userID), logger.WithSource("ratings"))
		metrics.Get().StoreFailures.WithLabelValues("taste_ratings", "read").Inc()
	}

	profile.Watched.Add(watchlist...)
	for _, r := range ratings {
		if !r.Value.Valid() {
			continue
		}
		profile.Watched.Add(r.TitleID)
		profile.Ratings[r.TitleID] = r.Value
	}
	return profile
}

// CalculateTasteMatch compares two users by id
func (s *Service) CalculateTasteMatch(ctx context.Context, userA, userB string) (MatchResult, error) {
	if strings.TrimSpace(userA) == "" {
		return MatchResult{}, apperrors.InvalidInput("user_a", "user id is required")
	}
	if strings.TrimSpace(userB) == "" {
		return MatchResult{}, apperrors.InvalidInput("user_b", "user id is required")
	}

	ctx, span := telemetry.StartEngineSpan(ctx, "tastematch.calculate")
	defer span.End()

	var pa, pb Profile
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); pa = s.LoadProfile(ctx, userA) }()
	go func() { defer wg.Done(); pb = s.LoadProfile(ctx, userB) }()
	wg.Wait()

	result := Calculate(pa, pb)
	span.SetAttributes(attribute.Int("tastematch.score", result.Score))
	return result, nil
}

// FindSimilarUsers compares userID against every other user. It is a linear
// scan of the population; candidate profiles load on a bounded worker pool.
func (s *Service) FindSimilarUsers(ctx context.Context, userID string, opts FindOptions) ([]UserMatch, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.InvalidInput("user_id", "user id is required")
	}
	if opts.MinScore < 0 || opts.MinScore > 100 {
		return nil, apperrors.InvalidInput("min_score", "must be between 0 and 100")
	}
	if opts.MinSharedRatings < 0 {
		return nil, apperrors.InvalidInput("min_shared_ratings", "must not be negative")
	}
	if opts.Limit < 0 {
		return nil, apperrors.InvalidInput("limit", "must not be negative")
	}

	start := time.Now()
	degraded := false
	ctx, span := telemetry.StartEngineSpan(ctx, "tastematch.find_similar_users")
	defer span.End()
	defer func() {
		metrics.Get().TasteMatchScans.Inc()
		metrics.Get().TasteMatchScanDuration.Observe(time.Since(start).Seconds())
		metrics.Stats().Observe(metrics.OpFindSimilarUsers, start, degraded)
	}()

	userIDs, err := s.source.GetUserIDs(ctx)
	if err != nil {
		logger.WarnWithFields("User population unavailable, no similar users", err, logger.WithUserID(userID))
		metrics.Get().StoreFailures.WithLabelValues("taste_users", "read").Inc()
		telemetry.MarkDegraded(span, "population_read_failed", err)
		degraded = true
		return []UserMatch{}, nil
	}

	self := s.LoadProfile(ctx, userID)

	jobs := make(chan string)
	results := make(chan UserMatch)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for other := range jobs {
				result := Calculate(self, s.LoadProfile(ctx, other))
				if result.Score <= opts.MinScore || result.SharedRatedCount < opts.MinSharedRatings {
					continue
				}
				select {
				case results <- UserMatch{UserID: other, MatchResult: result}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, other := range userIDs {
			if other == userID {
				continue
			}
			select {
			case jobs <- other:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	matches := make([]UserMatch, 0)
	for m := range results {
		matches = append(matches, m)
	}

	if err := ctx.Err(); err != nil {
		logger.WarnWithFields("Similar user scan cut short", err,
			logger.WithUserID(userID), zap.Int("matches", len(matches)))
		telemetry.MarkDegraded(span, "scan_deadline", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].SharedTitleCount != matches[j].SharedTitleCount {
			return matches[i].SharedTitleCount > matches[j].SharedTitleCount
		}
		return matches[i].UserID < matches[j].UserID
	})

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	span.SetAttributes(
		attribute.Int("tastematch.population", len(userIDs)),
		attribute.Int("tastematch.matches", len(matches)),
	)
	return matches, nil
}
