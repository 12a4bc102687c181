package tastematch

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zfogg/watchfeed/internal/models"
)

func profile(id string, watched []string, ratings map[string]models.RatingValue) Profile {
	p := Profile{UserID: id, Watched: models.NewTitleSet(), Ratings: map[models.TitleID]models.RatingValue{}}
	for _, w := range watched {
		p.Watched.Add(models.TitleID(w))
	}
	for t, r := range ratings {
		p.Watched.Add(models.TitleID(t))
		p.Ratings[models.TitleID(t)] = r
	}
	return p
}

func titles(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i+1)
	}
	return out
}

func TestCategoryFor(t *testing.T) {
	tests := map[int]Category{
		100: CategoryExceptional, 90: CategoryExceptional, 89: CategoryGreat, 70: CategoryGreat,
		69: CategoryGood, 50: CategoryGood, 49: CategoryFair, 30: CategoryFair, 29: CategoryPoor, 0: CategoryPoor,
	}
	for score, want := range tests {
		assert.Equal(t, want, CategoryFor(score), "score %d", score)
	}
}

func TestNoOverlap(t *testing.T) {
	a := profile("a", []string{"series-1", "series-2"}, map[string]models.RatingValue{"film-1": models.RatingLove})
	b := profile("b", []string{"series-3"}, map[string]models.RatingValue{"film-2": models.RatingLove})

	got := Calculate(a, b)
	assert.Equal(t, MatchResult{Category: CategoryPoor}, got)
	assert.Equal(t, MatchResult{Category: CategoryPoor}, Calculate(Profile{}, Profile{}))
}

func TestSharedTitlesRatedTheSame(t *testing.T) {
	// 4 shared titles, 2 rated love by both, smaller watch count 8
	shared := []string{"series-1", "series-2", "series-3", "series-4"}
	a := profile("a", append(append([]string{}, shared...), titles("film", 4)...), map[string]models.RatingValue{
		"series-1": models.RatingLove,
		"series-2": models.RatingLove,
	})
	b := profile("b", append(append([]string{}, shared...), titles("series-x", 8)...), map[string]models.RatingValue{
		"series-1": models.RatingLove,
		"series-2": models.RatingLove,
	})

	got := Calculate(a, b)
	assert.Equal(t, 4, got.SharedTitleCount)
	assert.Equal(t, 2, got.SharedRatedCount)
	assert.Equal(t, 100, got.RatingAgreementPct)
	assert.InDelta(t, 50.0, got.OverlapPct, 1e-9)
	assert.Equal(t, 80, got.Score)
	assert.Equal(t, CategoryGreat, got.Category)
}

func TestAgreementWeights(t *testing.T) {
	a := profile("a", nil, map[string]models.RatingValue{
		"film-1": models.RatingLove, // exact
		"film-2": models.RatingLove, // adjacent
		"film-3": models.RatingLove, // opposite
		"film-4": models.RatingMeh,  // adjacent
	})
	b := profile("b", nil, map[string]models.RatingValue{
		"film-1": models.RatingLove,
		"film-2": models.RatingLike,
		"film-3": models.RatingMeh,
		"film-4": models.RatingLike,
	})

	got := Calculate(a, b)
	// (1 + 0.5 + 0 + 0.5) / 4 = 50%; overlap 100%
	assert.Equal(t, 50, got.RatingAgreementPct)
	assert.Equal(t, 70, got.Score)
}

func TestNeutralAgreementWithoutMutualRatings(t *testing.T) {
	a := profile("a", []string{"series-1", "series-2"}, map[string]models.RatingValue{"series-1": models.RatingLove})
	b := profile("b", []string{"series-1", "series-2"}, nil)

	got := Calculate(a, b)
	assert.Equal(t, NeutralAgreement, got.RatingAgreementPct)
	assert.Equal(t, 0, got.SharedRatedCount)
	// 0.6*50 + 0.4*100
	assert.Equal(t, 70, got.Score)
}

func TestIdenticalProfilesCeiling(t *testing.T) {
	ratings := map[string]models.RatingValue{
		"series-1": models.RatingMeh,
		"series-2": models.RatingLike,
		"film-3":   models.RatingLove,
	}
	a := profile("a", []string{"film-9"}, ratings)
	b := profile("b", []string{"film-9"}, ratings)

	got := Calculate(a, b)
	assert.Equal(t, 100, got.RatingAgreementPct)
	assert.Equal(t, 100, got.Score)
	assert.Equal(t, CategoryExceptional, got.Category)
}

func TestSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := []models.RatingValue{models.RatingMeh, models.RatingLike, models.RatingLove}
	pool := titles("series", 30)

	random := func(id string) Profile {
		p := profile(id, nil, nil)
		for _, title := range pool {
			switch rng.Intn(3) {
			case 0:
				p.Watched.Add(models.TitleID(title))
			case 1:
				p.Watched.Add(models.TitleID(title))
				p.Ratings[models.TitleID(title)] = values[rng.Intn(len(values))]
			}
		}
		return p
	}

	for i := 0; i < 200; i++ {
		a, b := random("a"), random("b")
		assert.Equal(t, Calculate(a, b), Calculate(b, a))
	}
}
