package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TitleID identifies a series or film across the catalog and the data store.
// Format: "<mediaKind>-<catalogID>", e.g. "series-1399".
type TitleID string

// NewTitleID builds a TitleID from a media kind and a catalog id
func NewTitleID(kind MediaKind, catalogID int64) TitleID {
	return TitleID(fmt.Sprintf("%s-%d", kind, catalogID))
}

// Parse splits the id into its media kind and catalog id
func (t TitleID) Parse() (MediaKind, int64, error) {
	s := string(t)
	i := strings.LastIndex(s, "-")
	if i <= 0 || i == len(s)-1 {
		return "", 0, fmt.Errorf("malformed title id %q", s)
	}
	kind := MediaKind(s[:i])
	if !kind.Valid() {
		return "", 0, fmt.Errorf("malformed title id %q: unknown media kind", s)
	}
	id, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("malformed title id %q: bad catalog id", s)
	}
	return kind, id, nil
}

// String implements fmt.Stringer
func (t TitleID) String() string {
	return string(t)
}

// TitleSet is an unordered set of title ids
type TitleSet map[TitleID]struct{}

// NewTitleSet returns a set containing ids
func NewTitleSet(ids ...TitleID) TitleSet {
	s := make(TitleSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts ids into the set
func (s TitleSet) Add(ids ...TitleID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Has reports membership
func (s TitleSet) Has(id TitleID) bool {
	_, ok := s[id]
	return ok
}

// Slice returns the members sorted lexically
func (s TitleSet) Slice() []TitleID {
	out := make([]TitleID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
