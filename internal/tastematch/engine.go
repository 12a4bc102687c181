package tastematch

import (
	"math"

	"github.com/zfogg/watchfeed/internal/models"
)

// Category is the human-readable band of a match score
type Category string

const (
	CategoryExceptional Category = "exceptional"
	CategoryGreat       Category = "great"
	CategoryGood        Category = "good"
	CategoryFair        Category = "fair"
	CategoryPoor        Category = "poor"
)

// NeutralAgreement is used when no shared title was rated by both users
const NeutralAgreement = 50

const (
	agreementWeight = 0.6
	overlapWeight   = 0.4
)

// Profile is a snapshot of what a user has watched and how they rated it
type Profile struct {
	UserID  string
	Watched models.TitleSet
	Ratings map[models.TitleID]models.RatingValue
}

// WatchCount is the number of distinct titles the user watched
func (p Profile) WatchCount() int {
	return len(p.Watched)
}

// MatchResult describes the compatibility of two profiles
type MatchResult struct {
	Score              int      `json:"score"`
	Category           Category `json:"category"`
	SharedTitleCount   int      `json:"shared_title_count"`
	SharedRatedCount   int      `json:"shared_rated_count"`
	RatingAgreementPct int      `json:"rating_agreement_pct"`
	OverlapPct         float64  `json:"overlap_pct"`
}

// CategoryFor maps a score onto its band
func CategoryFor(score int) Category {
	switch {
	case score >= 90:
		return CategoryExceptional
	case score >= 70:
		return CategoryGreat
	case score >= 50:
		return CategoryGood
	case score >= 30:
		return CategoryFair
	}
	return CategoryPoor
}

// agreement weighs two ratings: exact 1, adjacent 0.5, opposite 0
func agreement(a, b models.RatingValue) (float64, bool) {
	switch a.Distance(b) {
	case 0:
		return 1, true
	case 1:
		return 0.5, true
	case 2:
		return 0, true
	}
	return 0, false
}

// Calculate scores two profiles 0-100. The result does not depend on argument order.
func Calculate(a, b Profile) MatchResult {
	small, large := a.Watched, b.Watched
	if len(small) > len(large) {
		small, large = large, small
	}

	var shared []models.TitleID
	for id := range small {
		if large.Has(id) {
			shared = append(shared, id)
		}
	}
	if len(shared) == 0 {
		return MatchResult{Category: CategoryPoor}
	}

	var sum float64
	rated := 0
	for _, id := range shared {
		ra, okA := a.Ratings[id]
		rb, okB := b.Ratings[id]
		if !okA || !okB {
			continue
		}
		w, ok := agreement(ra, rb)
		if !ok {
			continue
		}
		sum += w
		rated++
	}

	agreementPct := NeutralAgreement
	if rated > 0 {
		agreementPct = int(math.Round(100 * sum / float64(rated)))
	}

	var overlapPct float64
	if minWatch := min(a.WatchCount(), b.WatchCount()); minWatch > 0 {
		overlapPct = 100 * float64(len(shared)) / float64(minWatch)
	}

	score := int(math.Round(agreementWeight*float64(agreementPct) + overlapWeight*overlapPct))
	score = max(0, min(100, score))

	return MatchResult{
		Score:              score,
		Category:           CategoryFor(score),
		SharedTitleCount:   len(shared),
		SharedRatedCount:   rated,
		RatingAgreementPct: agreementPct,
		OverlapPct:         overlapPct,
	}
}
