package activity

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/zfogg/watchfeed/internal/errors"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/metrics"
	"github.com/zfogg/watchfeed/internal/models"
	"go.uber.org/zap"
)

// maxRawRecords bounds how much of the raw stream one feed request reads
const maxRawRecords = 1000

// Source reads a user's raw activity stream
type Source interface {
	GetActivities(ctx context.Context, userID string, since time.Time, limit int) ([]models.Activity, error)
}

// Service builds a user's grouped activity feed
type Service struct {
	source  Source
	grouper *Grouper
}

// NewService creates an activity feed service
func NewService(source Source, grouper *Grouper) *Service {
	if grouper == nil {
		grouper = NewGrouper(DefaultWindow)
	}
	return &Service{source: source, grouper: grouper}
}

// Feed returns the user's grouped activity since the given time, newest first.
// limit caps the number of entries (0 = no cap). A store failure yields an empty feed.
func (s *Service) Feed(ctx context.Context, userID string, since time.Time, limit int) ([]FeedEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.InvalidInput("user_id", "user id is required")
	}
	if limit < 0 {
		return nil, apperrors.InvalidInput("limit", "must not be negative")
	}

	start := time.Now()
	records, err := s.source.GetActivities(ctx, userID, since, maxRawRecords)
	if err != nil {
		logger.WarnWithFields("Activity stream unavailable, returning empty feed", err, logger.WithUserID(userID))
		metrics.Get().StoreFailures.WithLabelValues("activities", "read").Inc()
		metrics.Stats().Observe(metrics.OpActivityFeed, start, true)
		return []FeedEntry{}, nil
	}

	entries := s.grouper.Group(records)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	metrics.Stats().Observe(metrics.OpActivityFeed, start, false)

	logger.Log.Debug("Activity feed grouped",
		logger.WithUserID(userID),
		zap.Int("records", len(records)),
		zap.Int("entries", len(entries)))
	return entries, nil
}
