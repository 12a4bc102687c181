package activity

import (
	"sort"
	"time"

	"github.com/zfogg/watchfeed/internal/models"
)

// DefaultWindow is the maximum gap between two ungrouped actions on the same
// title for them to share a feed entry
const DefaultWindow = 5 * time.Minute

// FeedEntry is one grouped item in a user's activity feed
type FeedEntry struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	ContentID     string                `json:"content_id"`
	ActivityTypes []models.ActivityType `json:"activity_types"`
	// Timestamp is the most recent action in the entry
	Timestamp   time.Time `json:"timestamp"`
	StartedAt   time.Time `json:"started_at"`
	GroupID     *string   `json:"group_id,omitempty"`
	ActivityIDs []string  `json:"activity_ids"`
}

// Grouper clusters raw activity records into feed entries
type Grouper struct {
	window time.Duration
}

// NewGrouper creates a grouper; window <= 0 uses DefaultWindow
func NewGrouper(window time.Duration) *Grouper {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Grouper{window: window}
}

// Window returns the clustering window
func (g *Grouper) Window() time.Duration {
	return g.window
}

type streamKey struct {
	userID    string
	contentID string
}

// Group collapses records sharing a group id into one entry, then chain-clusters
// the rest per (user, title): a record joins the current cluster when it is
// within the window of the cluster's latest record. Consecutive means consecutive
// within that (user, title) stream; records for other titles in between do not
// close the cluster. Entries come back newest first.
func (g *Grouper) Group(activities []models.Activity) []FeedEntry {
	if len(activities) == 0 {
		return []FeedEntry{}
	}

	sorted := make([]models.Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var clusters [][]models.Activity
	byGroup := make(map[string]int)
	open := make(map[streamKey]int)

	for _, a := range sorted {
		if a.GroupID != nil && *a.GroupID != "" {
			if idx, ok := byGroup[*a.GroupID]; ok {
				clusters[idx] = append(clusters[idx], a)
				continue
			}
			byGroup[*a.GroupID] = len(clusters)
			clusters = append(clusters, []models.Activity{a})
			continue
		}

		key := streamKey{userID: a.UserID, contentID: a.ContentID}
		if idx, ok := open[key]; ok {
			cluster := clusters[idx]
			last := cluster[len(cluster)-1].Timestamp
			if a.Timestamp.Sub(last) <= g.window {
				clusters[idx] = append(cluster, a)
				continue
			}
		}
		open[key] = len(clusters)
		clusters = append(clusters, []models.Activity{a})
	}

	entries := make([]FeedEntry, 0, len(clusters))
	for _, c := range clusters {
		entries = append(entries, toEntry(c))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// toEntry builds an entry from a time-ordered cluster
func toEntry(cluster []models.Activity) FeedEntry {
	first := cluster[0]
	entry := FeedEntry{
		ID:          first.ID,
		UserID:      first.UserID,
		ContentID:   first.ContentID,
		StartedAt:   first.Timestamp,
		Timestamp:   cluster[len(cluster)-1].Timestamp,
		ActivityIDs: make([]string, 0, len(cluster)),
	}
	if first.GroupID != nil && *first.GroupID != "" {
		gid := *first.GroupID
		entry.ID = gid
		entry.GroupID = &gid
	}

	seen := make(map[models.ActivityType]bool)
	for _, a := range cluster {
		entry.ActivityIDs = append(entry.ActivityIDs, a.ID)
		if !seen[a.ActivityType] {
			seen[a.ActivityType] = true
			entry.ActivityTypes = append(entry.ActivityTypes, a.ActivityType)
		}
	}
	return entry
}

// GroupActivities groups with the default window
func GroupActivities(activities []models.Activity) []FeedEntry {
	return NewGrouper(DefaultWindow).Group(activities)
}
