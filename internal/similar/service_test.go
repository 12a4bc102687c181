package similar

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/watchfeed/internal/catalog"
	apperrors "github.com/zfogg/watchfeed/internal/errors"
	"github.com/zfogg/watchfeed/internal/exclusion"
	"github.com/zfogg/watchfeed/internal/models"
	"github.com/zfogg/watchfeed/internal/throttle"
)

type fakeCatalog struct {
	mu        sync.Mutex
	genres    map[models.TitleID][]int
	genreErr  error
	pages     [][]models.CatalogCandidate
	failPage  int
	pageCalls []int
	lookups   []models.TitleID
}

func (f *fakeCatalog) GetGenreIDs(ctx context.Context, kind models.MediaKind, catalogID int64) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := models.NewTitleID(kind, catalogID)
	f.lookups = append(f.lookups, id)
	if f.genreErr != nil {
		return nil, f.genreErr
	}
	g, ok := f.genres[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return g, nil
}

func (f *fakeCatalog) GetSimilarTitles(ctx context.Context, kind models.MediaKind, catalogID int64, page int) (*catalog.SimilarPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls = append(f.pageCalls, page)
	if page == f.failPage {
		return nil, &catalog.StatusError{StatusCode: 503, Endpoint: "similar"}
	}
	if page > len(f.pages) {
		return &catalog.SimilarPage{Page: page, TotalPages: len(f.pages)}, nil
	}
	return &catalog.SimilarPage{Page: page, TotalPages: len(f.pages), Results: f.pages[page-1]}, nil
}

type fakeExclusions struct {
	titles models.TitleSet
	failed []string
}

func (f *fakeExclusions) BuildWithReport(ctx context.Context, userID string) (*exclusion.Result, error) {
	return &exclusion.Result{Titles: f.titles, FailedSources: f.failed}, nil
}

type fakeShowable struct {
	blocked models.TitleSet
	got     []models.TitleID
}

func (f *fakeShowable) ComputeShowableSet(ctx context.Context, userID string, cardType models.CardType, ids []models.TitleID, opts ...throttle.Option) (models.TitleSet, error) {
	f.got = ids
	out := models.NewTitleSet()
	for _, id := range ids {
		if !f.blocked.Has(id) {
			out.Add(id)
		}
	}
	return out, nil
}

func series(id int64, genres []int, avg float64, votes int, pop float64) models.CatalogCandidate {
	return models.CatalogCandidate{
		TitleID:     models.NewTitleID(models.MediaSeries, id),
		CatalogID:   id,
		MediaKind:   models.MediaSeries,
		GenreIDs:    genres,
		VoteAverage: avg,
		VoteCount:   votes,
		Popularity:  pop,
	}
}

func ids(scored []Scored) []models.TitleID {
	out := make([]models.TitleID, len(scored))
	for i, s := range scored {
		out[i] = s.Candidate.TitleID
	}
	return out
}

const source = models.TitleID("series-1399")

func TestRankSimilarContent(t *testing.T) {
	cat := &fakeCatalog{
		genres: map[models.TitleID][]int{
			source:      {18, 10765},
			"series-20": {18, 10765},
		},
		pages: [][]models.CatalogCandidate{
			{
				series(1399, []int{18}, 9, 9000, 900), // the source itself
				series(10, []int{18}, 8, 500, 60),
				series(11, []int{35}, 9.5, 10, 500), // too few votes
				series(12, []int{18, 10765}, 7, 300, 15),
			},
			{
				series(10, []int{18}, 8, 500, 60), // duplicate across pages
				series(20, nil, 6, 200, 30),       // genres backfilled
				series(21, []int{18}, 9, 800, 200),
			},
		},
	}
	excl := &fakeExclusions{titles: models.NewTitleSet("series-21")}

	svc := NewService(cat, excl, nil, Defaults{})
	ranked, err := svc.RankSimilarContent(context.Background(), source, models.MediaSeries, Options{ViewerID: "u1"})
	require.NoError(t, err)

	// series-20: 20+12+30=62, series-10: 10+16+40=66, series-12: 20+14+20=54
	assert.Equal(t, []models.TitleID{"series-10", "series-20", "series-12"}, ids(ranked))
	assert.Equal(t, []int{1, 2}, cat.pageCalls)
	assert.Contains(t, cat.lookups, models.TitleID("series-20"))
	assert.NotContains(t, cat.lookups, models.TitleID("series-11"))
}

func TestRankSimilarContentVoteFloor(t *testing.T) {
	newCatalog := func() *fakeCatalog {
		return &fakeCatalog{
			genres: map[models.TitleID][]int{source: {18}},
			pages: [][]models.CatalogCandidate{{
				series(11, []int{18}, 9.5, 10, 500),
				series(12, []int{18}, 7, 300, 15),
			}},
		}
	}

	t.Run("zero defaults fall back to the standard floor", func(t *testing.T) {
		svc := NewService(newCatalog(), nil, nil, Defaults{})
		ranked, err := svc.RankSimilarContent(context.Background(), source, models.MediaSeries, Options{})
		require.NoError(t, err)
		assert.Equal(t, []models.TitleID{"series-12"}, ids(ranked))
	})

	t.Run("unfiltered ranks low vote titles", func(t *testing.T) {
		svc := NewService(newCatalog(), nil, nil, Defaults{MinVoteCount: 100})
		ranked, err := svc.RankSimilarContent(context.Background(), source, models.MediaSeries, Options{Unfiltered: true})
		require.NoError(t, err)
		assert.Equal(t, []models.TitleID{"series-11", "series-12"}, ids(ranked))
	})

	t.Run("explicit floor overrides the default", func(t *testing.T) {
		svc := NewService(newCatalog(), nil, nil, Defaults{})
		ranked, err := svc.RankSimilarContent(context.Background(), source, models.MediaSeries, Options{MinVoteCount: 500})
		require.NoError(t, err)
		assert.Empty(t, ranked)
	})
}

func TestRankSimilarContentGenreLookupDegrades(t *testing.T) {
	cat := &fakeCatalog{
		genreErr: errors.New("catalog down"),
		pages: [][]models.CatalogCandidate{{
			series(10, []int{18}, 5, 100, 0),
			series(11, []int{18}, 6, 100, 0),
		}},
	}
	ranked, err := NewService(cat, nil, nil, Defaults{}).RankSimilarContent(context.Background(), source, models.MediaSeries, Options{})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.InDelta(t, 12.0, ranked[0].Score, 1e-9)
	assert.InDelta(t, 10.0, ranked[1].Score, 1e-9)
}

func TestRankSimilarContentFailedPageKeepsEarlierPages(t *testing.T) {
	cat := &fakeCatalog{
		genres:   map[models.TitleID][]int{source: {18}},
		failPage: 2,
		pages: [][]models.CatalogCandidate{
			{series(10, []int{18}, 5, 100, 0)},
			{series(11, []int{18}, 5, 100, 0)},
			{series(12, []int{18}, 5, 100, 0)},
		},
	}
	ranked, err := NewService(cat, nil, nil, Defaults{}).RankSimilarContent(context.Background(), source, models.MediaSeries, Options{MaxPages: 3})
	require.NoError(t, err)
	assert.Equal(t, []models.TitleID{"series-10"}, ids(ranked))
	assert.Equal(t, []int{1, 2}, cat.pageCalls)
}

func TestRankSimilarContentThrottle(t *testing.T) {
	var page []models.CatalogCandidate
	for i := int64(1); i <= 5; i++ {
		page = append(page, series(100+i, []int{18}, float64(10-i), 100, 0))
	}
	cat := &fakeCatalog{genres: map[models.TitleID][]int{source: {18}}, pages: [][]models.CatalogCandidate{page}}
	show := &fakeShowable{blocked: models.NewTitleSet("series-101")}

	svc := NewService(cat, nil, show, Defaults{})
	ranked, err := svc.RankSimilarContent(context.Background(), source, models.MediaSeries,
		Options{ViewerID: "u1", Limit: 2, ApplyThrottle: true})
	require.NoError(t, err)
	assert.Equal(t, []models.TitleID{"series-102", "series-103"}, ids(ranked))
	assert.Len(t, show.got, 5)
}

func TestRankSimilarContentRejectsInvalidInput(t *testing.T) {
	svc := NewService(&fakeCatalog{}, nil, nil, Defaults{})
	ctx := context.Background()

	cases := []struct {
		name   string
		source models.TitleID
		kind   models.MediaKind
		opts   Options
	}{
		{"malformed title", "1399", models.MediaSeries, Options{}},
		{"unknown kind", source, "anime", Options{}},
		{"kind mismatch", source, models.MediaFilm, Options{}},
		{"negative limit", source, models.MediaSeries, Options{Limit: -1}},
		{"throttle without viewer", source, models.MediaSeries, Options{ApplyThrottle: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RankSimilarContent(ctx, tc.source, tc.kind, tc.opts)
			assert.True(t, apperrors.IsInvalidInput(err))
		})
	}
}
