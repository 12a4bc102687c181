package exclusion

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/zfogg/watchfeed/internal/errors"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/metrics"
	"github.com/zfogg/watchfeed/internal/models"
	"go.uber.org/zap"
)

// Source names as they appear in logs, metrics and Result.FailedSources
const (
	SourceWatchlist = "watchlist"
	SourceRatings   = "ratings"
	SourceDismissed = "dismissed"
)

// Sources is the subset of the taste repository the builder reads
type Sources interface {
	GetWatchlistTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error)
	GetRatedTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error)
	GetDismissedTitleIDs(ctx context.Context, userID string) ([]models.TitleID, error)
}

// Result is an exclusion set plus the sources that could not be read
type Result struct {
	Titles        models.TitleSet
	FailedSources []string
}

// Partial reports whether at least one source contributed nothing because it failed
func (r *Result) Partial() bool {
	return len(r.FailedSources) > 0
}

// Builder computes the titles a user must never be recommended
type Builder struct {
	sources Sources
}

// NewBuilder creates an exclusion set builder
func NewBuilder(sources Sources) *Builder {
	return &Builder{sources: sources}
}

// Build returns the union of the user's watch-list, rated and dismissed titles
func (b *Builder) Build(ctx context.Context, userID string) (models.TitleSet, error) {
	res, err := b.BuildWithReport(ctx, userID)
	if err != nil {
		return nil, err
	}
	return res.Titles, nil
}

// BuildWithReport reads the three sources concurrently. A failing source is
// logged and contributes an empty subset; only invalid input is returned as an error.
func (b *Builder) BuildWithReport(ctx context.Context, userID string) (*Result, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.InvalidInput("user_id", "user id is required")
	}

	type sourceResult struct {
		source string
		ids    []models.TitleID
		err    error
	}

	fetchers := map[string]func(context.Context, string) ([]models.TitleID, error){
		SourceWatchlist: b.sources.GetWatchlistTitleIDs,
		SourceRatings:   b.sources.GetRatedTitleIDs,
		SourceDismissed: b.sources.GetDismissedTitleIDs,
	}

	resultsChan := make(chan sourceResult, len(fetchers))
	for name, fetch := range fetchers {
		go func(name string, fetch func(context.Context, string) ([]models.TitleID, error)) {
			ids, err := fetch(ctx, userID)
			resultsChan <- sourceResult{source: name, ids: ids, err: err}
		}(name, fetch)
	}

	start := time.Now()
	res := &Result{Titles: make(models.TitleSet)}
	for i := 0; i < len(fetchers); i++ {
		r := <-resultsChan
		if r.err != nil {
			logger.Log.Warn("Exclusion source failed",
				logger.WithUserID(userID),
				logger.WithSource(r.source),
				zap.Error(r.err))
			metrics.Get().StoreFailures.WithLabelValues("exclusion_"+r.source, "read").Inc()
			res.FailedSources = append(res.FailedSources, r.source)
			continue
		}
		res.Titles.Add(r.ids...)
	}

	metrics.Stats().Observe(metrics.OpExclusions, start, res.Partial())
	logger.Log.Debug("Exclusion set built",
		logger.WithUserID(userID),
		zap.Int("count", len(res.Titles)),
		zap.Strings("failed_sources", res.FailedSources))

	return res, nil
}
