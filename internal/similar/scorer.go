package similar

import (
	"sort"

	"github.com/zfogg/watchfeed/internal/models"
)

const (
	// DefaultMinVoteCount is the minimum number of catalog votes a candidate needs
	DefaultMinVoteCount = 50
	// DefaultLimit is the number of recommendations returned by Rank
	DefaultLimit = 10

	// Excluded is returned by Score for candidates below the vote floor
	Excluded = -1.0

	genreOverlapWeight = 10.0
	voteAverageWeight  = 2.0
)

// popularityTiers are evaluated top-down; the first threshold exceeded wins
var popularityTiers = []struct {
	above float64
	bonus float64
}{
	{100, 50},
	{50, 40},
	{20, 30},
	{10, 20},
	{5, 10},
}

// Scored pairs a candidate with its similarity score
type Scored struct {
	Candidate models.CatalogCandidate `json:"candidate"`
	Score     float64                 `json:"score"`
}

// Score rates how good a recommendation candidate is for a title with the
// given genres. Candidates with fewer than minVoteCount votes get Excluded.
func Score(c models.CatalogCandidate, sourceGenreIDs []int, minVoteCount int) float64 {
	if c.VoteCount < minVoteCount {
		return Excluded
	}
	return genreOverlapWeight*float64(genreOverlap(c.GenreIDs, sourceGenreIDs)) +
		voteAverageWeight*c.VoteAverage +
		popularityBonus(c.Popularity)
}

func genreOverlap(candidate, source []int) int {
	if len(candidate) == 0 || len(source) == 0 {
		return 0
	}
	src := make(map[int]struct{}, len(source))
	for _, g := range source {
		src[g] = struct{}{}
	}
	n := 0
	seen := make(map[int]struct{}, len(candidate))
	for _, g := range candidate {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		if _, ok := src[g]; ok {
			n++
		}
	}
	return n
}

func popularityBonus(popularity float64) float64 {
	for _, tier := range popularityTiers {
		if popularity > tier.above {
			return tier.bonus
		}
	}
	return 0
}

// RankScored scores every candidate, drops the excluded ones and returns the
// best limit of them, highest score first. Ties keep input order.
func RankScored(candidates []models.CatalogCandidate, sourceGenreIDs []int, minVoteCount, limit int) []Scored {
	if limit <= 0 {
		limit = DefaultLimit
	}

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if c.VoteCount < minVoteCount {
			continue
		}
		scored = append(scored, Scored{Candidate: c, Score: Score(c, sourceGenreIDs, minVoteCount)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Rank is RankScored without the scores
func Rank(candidates []models.CatalogCandidate, sourceGenreIDs []int, minVoteCount, limit int) []models.CatalogCandidate {
	scored := RankScored(candidates, sourceGenreIDs, minVoteCount, limit)
	out := make([]models.CatalogCandidate, len(scored))
	for i, s := range scored {
		out[i] = s.Candidate
	}
	return out
}
