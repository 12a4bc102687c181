package models

import (
	"fmt"
	"strings"
)

// RatingValue is the three-step rating a user gives a title
type RatingValue string

const (
	RatingMeh  RatingValue = "meh"
	RatingLike RatingValue = "like"
	RatingLove RatingValue = "love"
)

// rank places ratings on an ordinal scale: meh < like < love
func (r RatingValue) rank() int {
	switch r {
	case RatingMeh:
		return 0
	case RatingLike:
		return 1
	case RatingLove:
		return 2
	}
	return -1
}

// Valid reports whether r is one of the known rating values
func (r RatingValue) Valid() bool {
	return r.rank() >= 0
}

// Distance returns how many steps apart two ratings are (0 exact, 1 adjacent, 2 opposite).
// Unknown values return -1.
func (r RatingValue) Distance(other RatingValue) int {
	a, b := r.rank(), other.rank()
	if a < 0 || b < 0 {
		return -1
	}
	if a > b {
		return a - b
	}
	return b - a
}

// ParseRatingValue converts a string into a RatingValue
func ParseRatingValue(s string) (RatingValue, error) {
	r := RatingValue(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown rating value %q", s)
	}
	return r, nil
}

// CardType is the category of a non-organic feed card
type CardType string

const (
	CardSimilarContent   CardType = "similar_content"
	CardFollowSuggestion CardType = "follow_suggestion"
	CardComingSoon       CardType = "coming_soon"
)

// Valid reports whether c is a known card type
func (c CardType) Valid() bool {
	switch c {
	case CardSimilarContent, CardFollowSuggestion, CardComingSoon:
		return true
	}
	return false
}

// CapExempt reports whether the card type ignores the max-impression cap.
// Coming-soon notices are still subject to the cooldown.
func (c CardType) CapExempt() bool {
	return c == CardComingSoon
}

// ParseCardType converts a string into a CardType
func ParseCardType(s string) (CardType, error) {
	c := CardType(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown card type %q", s)
	}
	return c, nil
}

// MediaKind distinguishes series from films in the catalog
type MediaKind string

const (
	MediaSeries MediaKind = "series"
	MediaFilm   MediaKind = "film"
)

// Valid reports whether m is a known media kind
func (m MediaKind) Valid() bool {
	return m == MediaSeries || m == MediaFilm
}

// ParseMediaKind converts a string into a MediaKind ("tv" and "movie" are accepted as aliases)
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "series", "tv", "show":
		return MediaSeries, nil
	case "film", "movie":
		return MediaFilm, nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// WatchStatus is the state of a title on a user's watch list
type WatchStatus string

const (
	StatusWantToWatch WatchStatus = "want_to_watch"
	StatusWatching    WatchStatus = "watching"
	StatusWatched     WatchStatus = "watched"
	StatusDropped     WatchStatus = "dropped"
)

// ActivityType is the kind of action recorded in a user's activity stream
type ActivityType string

const (
	ActivityRated            ActivityType = "rated"
	ActivityStatusChanged    ActivityType = "status_changed"
	ActivityAddedToWatchlist ActivityType = "added_to_watchlist"
	ActivityReviewed         ActivityType = "reviewed"
	ActivityFinished         ActivityType = "finished"
)
