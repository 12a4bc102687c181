package similar

import (
	"context"
	"strings"
	"time"

	"github.com/zfogg/watchfeed/internal/catalog"
	apperrors "github.com/zfogg/watchfeed/internal/errors"
	"github.com/zfogg/watchfeed/internal/exclusion"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/metrics"
	"github.com/zfogg/watchfeed/internal/models"
	"github.com/zfogg/watchfeed/internal/telemetry"
	"github.com/zfogg/watchfeed/internal/throttle"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultMaxPages is how many pages of the similar listing are fetched
const DefaultMaxPages = 2

// Catalog is the part of the media catalog the ranker needs
type Catalog interface {
	GetGenreIDs(ctx context.Context, kind models.MediaKind, catalogID int64) ([]int, error)
	GetSimilarTitles(ctx context.Context, kind models.MediaKind, catalogID int64, page int) (*catalog.SimilarPage, error)
}

// ExclusionBuilder produces the titles a viewer must not be shown
type ExclusionBuilder interface {
	BuildWithReport(ctx context.Context, userID string) (*exclusion.Result, error)
}

// ShowableFilter gates the ranked list through the exposure throttle
type ShowableFilter interface {
	ComputeShowableSet(ctx context.Context, userID string, cardType models.CardType, candidateIDs []models.TitleID, opts ...throttle.Option) (models.TitleSet, error)
}

// Defaults are the ranking options used when a request leaves them zero
type Defaults struct {
	MinVoteCount int
	Limit        int
	MaxPages     int
}

// Options tune a single RankSimilarContent call. Zero values use the service defaults.
type Options struct {
	// ViewerID, when set, removes titles the viewer already tracks, rated or dismissed
	ViewerID     string
	// MinVoteCount 0 means the service default; set Unfiltered to rank without a floor
	MinVoteCount int
	Limit        int
	MaxPages     int
	Unfiltered   bool
	// ApplyThrottle drops titles whose similar_content card is on cooldown or maxed out for the viewer
	ApplyThrottle bool
}

// Service ranks "similar content" recommendations for a source title
type Service struct {
	catalog    Catalog
	exclusions ExclusionBuilder
	throttle   ShowableFilter
	defaults   Defaults
}

// NewService creates a ranking service. exclusions and showable may be nil.
func NewService(cat Catalog, exclusions ExclusionBuilder, showable ShowableFilter, defaults Defaults) *Service {
	if defaults.MinVoteCount <= 0 {
		defaults.MinVoteCount = DefaultMinVoteCount
	}
	if defaults.Limit <= 0 {
		defaults.Limit = DefaultLimit
	}
	if defaults.MaxPages <= 0 {
		defaults.MaxPages = DefaultMaxPages
	}
	return &Service{catalog: cat, exclusions: exclusions, throttle: showable, defaults: defaults}
}

func (s *Service) resolve(opts Options) (Options, error) {
	if opts.MinVoteCount < 0 {
		return opts, apperrors.InvalidInput("min_vote_count", "must not be negative")
	}
	if opts.Limit < 0 {
		return opts, apperrors.InvalidInput("limit", "must not be negative")
	}
	if opts.MaxPages < 0 {
		return opts, apperrors.InvalidInput("max_pages", "must not be negative")
	}
	if opts.ApplyThrottle && strings.TrimSpace(opts.ViewerID) == "" {
		return opts, apperrors.InvalidInput("viewer_id", "required when applying the exposure throttle")
	}
	switch {
	case opts.Unfiltered:
		opts.MinVoteCount = 0
	case opts.MinVoteCount == 0:
		opts.MinVoteCount = s.defaults.MinVoteCount
	}
	if opts.Limit == 0 {
		opts.Limit = s.defaults.Limit
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = s.defaults.MaxPages
	}
	return opts, nil
}

// RankSimilarContent returns the best catalog recommendations for source.
// Catalog and store failures degrade the result; only invalid input is an error.
func (s *Service) RankSimilarContent(ctx context.Context, source models.TitleID, kind models.MediaKind, opts Options) ([]Scored, error) {
	if !kind.Valid() {
		return nil, apperrors.InvalidInput("media_kind", "unknown media kind "+string(kind))
	}
	sourceKind, catalogID, err := source.Parse()
	if err != nil {
		return nil, apperrors.InvalidInput("source_title_id", err.Error())
	}
	if sourceKind != kind {
		return nil, apperrors.InvalidInput("media_kind", "does not match source title "+source.String())
	}
	opts, err = s.resolve(opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := telemetry.StartEngineSpan(ctx, "similar.rank",
		attribute.String("title.id", source.String()),
		attribute.String("media.kind", string(kind)),
	)
	defer span.End()

	// Exclusions and source genres are independent; fetch them together
	type exclusionResult struct {
		titles  models.TitleSet
		partial bool
		err     error
	}
	exclChan := make(chan exclusionResult, 1)
	go func() {
		if s.exclusions == nil || opts.ViewerID == "" {
			exclChan <- exclusionResult{titles: models.TitleSet{}}
			return
		}
		res, err := s.exclusions.BuildWithReport(ctx, opts.ViewerID)
		if err != nil {
			exclChan <- exclusionResult{err: err}
			return
		}
		if res.Partial() {
			telemetry.MarkDegraded(span, "partial_exclusions", nil)
		}
		exclChan <- exclusionResult{titles: res.Titles, partial: res.Partial()}
	}()

	sourceGenres := s.lookupGenres(ctx, kind, catalogID, source)
	if len(sourceGenres) == 0 {
		telemetry.MarkDegraded(span, "no_source_genres", nil)
	}

	excl := <-exclChan
	if excl.err != nil {
		return nil, excl.err
	}

	candidates := s.fetchCandidates(ctx, kind, catalogID, source, opts.MaxPages)
	candidates = filterCandidates(candidates, source, excl.titles)
	s.backfillGenres(ctx, candidates, opts.MinVoteCount)

	var ranked []Scored
	if opts.ApplyThrottle && s.throttle != nil && len(candidates) > 0 {
		// Throttle the full ranking so suppressed cards do not shrink the page
		ranked = s.applyThrottle(ctx, opts.ViewerID, RankScored(candidates, sourceGenres, opts.MinVoteCount, len(candidates)))
		if len(ranked) > opts.Limit {
			ranked = ranked[:opts.Limit]
		}
	} else {
		ranked = RankScored(candidates, sourceGenres, opts.MinVoteCount, opts.Limit)
	}

	metrics.Get().SimilarCandidatesRanked.WithLabelValues(string(kind)).Add(float64(len(candidates)))
	metrics.Get().SimilarRankDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	metrics.Stats().Observe(metrics.OpSimilarContent, start, excl.partial || len(sourceGenres) == 0)
	span.SetAttributes(
		attribute.Int("similar.candidates", len(candidates)),
		attribute.Int("similar.returned", len(ranked)),
	)

	logger.Log.Debug("Ranked similar content",
		logger.WithContentID(source.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(ranked)),
		zap.Int("source_genres", len(sourceGenres)))

	return ranked, nil
}

// lookupGenres degrades to no genres on any failure
func (s *Service) lookupGenres(ctx context.Context, kind models.MediaKind, catalogID int64, source models.TitleID) []int {
	genres, err := s.catalog.GetGenreIDs(ctx, kind, catalogID)
	if err != nil {
		logger.Log.Warn("Source genre lookup failed, ranking without genre signal",
			logger.WithContentID(source.String()),
			zap.Error(err))
		return nil
	}
	return genres
}

// fetchCandidates pages through the similar listing. A failed page stops
// pagination and keeps what was already fetched.
func (s *Service) fetchCandidates(ctx context.Context, kind models.MediaKind, catalogID int64, source models.TitleID, maxPages int) []models.CatalogCandidate {
	var all []models.CatalogCandidate
	for page := 1; page <= maxPages; page++ {
		res, err := s.catalog.GetSimilarTitles(ctx, kind, catalogID, page)
		if err != nil {
			logger.Log.Warn("Similar titles page failed",
				logger.WithContentID(source.String()),
				zap.Int("page", page),
				zap.Error(err))
			break
		}
		all = append(all, res.Results...)
		if res.TotalPages > 0 && page >= res.TotalPages {
			break
		}
	}
	return all
}

// filterCandidates drops the source itself, duplicates and excluded titles, keeping listing order
func filterCandidates(candidates []models.CatalogCandidate, source models.TitleID, excluded models.TitleSet) []models.CatalogCandidate {
	seen := make(models.TitleSet, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if c.TitleID == "" || c.TitleID == source || excluded.Has(c.TitleID) || seen.Has(c.TitleID) {
			continue
		}
		seen.Add(c.TitleID)
		out = append(out, c)
	}
	return out
}

// backfillGenres fills in genres for rankable candidates the listing returned
// without any. Requests go through the catalog's pacing limiter.
func (s *Service) backfillGenres(ctx context.Context, candidates []models.CatalogCandidate, minVoteCount int) {
	for i := range candidates {
		c := &candidates[i]
		if len(c.GenreIDs) > 0 || c.VoteCount < minVoteCount {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		genres, err := s.catalog.GetGenreIDs(ctx, c.MediaKind, c.CatalogID)
		if err != nil {
			logger.Log.Warn("Candidate genre backfill failed",
				logger.WithContentID(c.TitleID.String()),
				zap.Error(err))
			continue
		}
		c.GenreIDs = genres
	}
}

func (s *Service) applyThrottle(ctx context.Context, viewerID string, ranked []Scored) []Scored {
	ids := make([]models.TitleID, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Candidate.TitleID
	}
	showable, err := s.throttle.ComputeShowableSet(ctx, viewerID, models.CardSimilarContent, ids)
	if err != nil {
		// Throttle reads already fail open; an error here is a caller bug
		logger.WarnWithFields("Showable set failed, returning unthrottled ranking", err, logger.WithUserID(viewerID))
		return ranked
	}
	out := ranked[:0]
	for _, r := range ranked {
		if showable.Has(r.Candidate.TitleID) {
			out = append(out, r)
		}
	}
	return out
}
