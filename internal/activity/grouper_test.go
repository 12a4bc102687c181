package activity

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zfogg/watchfeed/internal/errors"
	"github.com/zfogg/watchfeed/internal/models"
)

var t0 = time.Date(2026, 5, 10, 20, 0, 0, 0, time.UTC)

func act(id, content string, typ models.ActivityType, offset time.Duration, group string) models.Activity {
	a := models.Activity{ID: id, UserID: "u1", ActivityType: typ, ContentID: content, Timestamp: t0.Add(offset)}
	if group != "" {
		a.GroupID = &group
	}
	return a
}

func entryIDs(entries []FeedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestChainClustering(t *testing.T) {
	// a-b and b-c are within 5m of each other, a-c are 8m apart: all three join
	records := []models.Activity{
		act("c", "series-1", models.ActivityReviewed, 8*time.Minute, ""),
		act("a", "series-1", models.ActivityAddedToWatchlist, 0, ""),
		act("b", "series-1", models.ActivityRated, 4*time.Minute, ""),
	}
	entries := GroupActivities(records)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "a", e.ID)
	assert.Equal(t, []string{"a", "b", "c"}, e.ActivityIDs)
	assert.Equal(t, []models.ActivityType{models.ActivityAddedToWatchlist, models.ActivityRated, models.ActivityReviewed}, e.ActivityTypes)
	assert.Equal(t, t0.Add(8*time.Minute), e.Timestamp)
	assert.Equal(t, t0, e.StartedAt)
	assert.Nil(t, e.GroupID)
}

func TestClusterBreaksOnGap(t *testing.T) {
	records := []models.Activity{
		act("a", "series-1", models.ActivityRated, 0, ""),
		act("b", "series-1", models.ActivityStatusChanged, 5*time.Minute, ""),
		act("c", "series-1", models.ActivityRated, 10*time.Minute+time.Second, ""),
		act("d", "film-2", models.ActivityRated, time.Minute, ""),
	}
	entries := GroupActivities(records)
	assert.Equal(t, []string{"c", "a", "d"}, entryIDs(entries))
	assert.Equal(t, []string{"a", "b"}, entries[1].ActivityIDs)
}

func TestGroupIDCollapses(t *testing.T) {
	records := []models.Activity{
		act("a", "series-1", models.ActivityRated, 0, "g1"),
		act("b", "series-1", models.ActivityStatusChanged, time.Hour, "g1"),
		act("c", "series-1", models.ActivityRated, 2*time.Minute, ""),
		act("d", "series-1", models.ActivityRated, 2*time.Minute, "g2"),
	}
	entries := GroupActivities(records)
	require.Len(t, entries, 3)

	assert.Equal(t, "g1", entries[0].ID)
	require.NotNil(t, entries[0].GroupID)
	assert.Equal(t, "g1", *entries[0].GroupID)
	assert.Equal(t, t0.Add(time.Hour), entries[0].Timestamp)
	assert.Equal(t, []models.ActivityType{models.ActivityRated, models.ActivityStatusChanged}, entries[0].ActivityTypes)

	// Same timestamp: ties break on id
	assert.Equal(t, []string{"c", "g2"}, entryIDs(entries[1:]))
}

func TestDuplicateTypesAppearOnce(t *testing.T) {
	records := []models.Activity{
		act("a", "series-1", models.ActivityRated, 0, ""),
		act("b", "series-1", models.ActivityRated, time.Minute, ""),
	}
	entries := GroupActivities(records)
	require.Len(t, entries, 1)
	assert.Equal(t, []models.ActivityType{models.ActivityRated}, entries[0].ActivityTypes)
}

func TestGroupingIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []models.ActivityType{models.ActivityRated, models.ActivityStatusChanged, models.ActivityReviewed}
	contents := []string{"series-1", "series-2", "film-3"}

	var records []models.Activity
	offset := time.Duration(0)
	for i := 0; i < 60; i++ {
		offset += time.Duration(rng.Intn(7*60)) * time.Second
		group := ""
		if rng.Intn(5) == 0 {
			group = []string{"g1", "g2", "g3"}[rng.Intn(3)]
		}
		records = append(records, act(string(rune('A'+i%26))+string(rune('a'+i/26)),
			contents[rng.Intn(len(contents))], types[rng.Intn(len(types))], offset, group))
	}

	byID := make(map[string]models.Activity, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	first := GroupActivities(records)

	var flat []models.Activity
	for _, e := range first {
		for _, id := range e.ActivityIDs {
			flat = append(flat, byID[id])
		}
	}
	rng.Shuffle(len(flat), func(i, j int) { flat[i], flat[j] = flat[j], flat[i] })

	assert.Equal(t, first, GroupActivities(flat))
}

func TestCustomWindow(t *testing.T) {
	records := []models.Activity{
		act("a", "series-1", models.ActivityRated, 0, ""),
		act("b", "series-1", models.ActivityReviewed, 90*time.Second, ""),
	}
	assert.Len(t, NewGrouper(time.Minute).Group(records), 2)
	assert.Len(t, NewGrouper(0).Group(records), 1)
	assert.Empty(t, GroupActivities(nil))
}

type fakeSource struct {
	records []models.Activity
	err     error
}

func (f *fakeSource) GetActivities(ctx context.Context, userID string, since time.Time, limit int) ([]models.Activity, error) {
	return f.records, f.err
}

func TestFeed(t *testing.T) {
	src := &fakeSource{records: []models.Activity{
		act("a", "series-1", models.ActivityRated, 0, ""),
		act("b", "film-2", models.ActivityRated, time.Hour, ""),
		act("c", "film-3", models.ActivityRated, 2*time.Hour, ""),
	}}
	svc := NewService(src, nil)

	entries, err := svc.Feed(context.Background(), "u1", time.Time{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, entryIDs(entries))

	src.err = errors.New("db down")
	entries, err = svc.Feed(context.Background(), "u1", time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = svc.Feed(context.Background(), "", time.Time{}, 0)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestInterleavedTitlesKeepTheirClusters(t *testing.T) {
	// series-1 and film-2 alternate; each title's own gaps stay within the window
	records := []models.Activity{
		act("a", "series-1", models.ActivityAddedToWatchlist, 0, ""),
		act("b", "film-2", models.ActivityAddedToWatchlist, time.Minute, ""),
		act("c", "series-1", models.ActivityRated, 2*time.Minute, ""),
		act("d", "film-3", models.ActivityRated, 3*time.Minute, "g1"),
		act("e", "film-2", models.ActivityRated, 4*time.Minute, ""),
		act("f", "series-1", models.ActivityReviewed, 6*time.Minute, ""),
	}
	entries := GroupActivities(records)
	require.Len(t, entries, 3)

	byContent := map[string]FeedEntry{}
	for _, e := range entries {
		byContent[e.ContentID] = e
	}
	assert.Equal(t, []string{"a", "c", "f"}, byContent["series-1"].ActivityIDs)
	assert.Equal(t, []string{"b", "e"}, byContent["film-2"].ActivityIDs)
	assert.Equal(t, []string{"d"}, byContent["film-3"].ActivityIDs)
	assert.Equal(t, []string{"a", "b", "g1"}, entryIDs(entries))
}
