package models

// CatalogCandidate is a title listed by the external media catalog.
// Read-only; never persisted by the feed engine.
type CatalogCandidate struct {
	TitleID     TitleID   `json:"title_id" validate:"required"`
	CatalogID   int64     `json:"catalog_id"`
	Name        string    `json:"name"`
	MediaKind   MediaKind `json:"media_kind" validate:"required,oneof=series film"`
	GenreIDs    []int     `json:"genre_ids"`
	VoteAverage float64   `json:"vote_average" validate:"gte=0,lte=10"`
	VoteCount   int       `json:"vote_count" validate:"gte=0"`
	Popularity  float64   `json:"popularity" validate:"gte=0"`
}
