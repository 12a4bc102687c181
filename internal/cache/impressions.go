package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/watchfeed/internal/models"
	"github.com/zfogg/watchfeed/internal/repository"
)

// Hash fields of one ledger entry
const (
	fieldCount     = "count"
	fieldFirstShow = "first_shown_at"
	fieldLastShow  = "last_shown_at"
	fieldSource    = "source_content_id"
)

// ImpressionLedger stores the exposure ledger in Redis hashes, one hash per
// (user, card type, content) key. Increments run inside MULTI/EXEC so the
// count bump and timestamp refresh are applied atomically on the server.
type ImpressionLedger struct {
	rc *RedisClient
}

// NewImpressionLedger creates a Redis-backed repository.ImpressionRepository
func NewImpressionLedger(rc *RedisClient) *ImpressionLedger {
	return &ImpressionLedger{rc: rc}
}

var _ repository.ImpressionRepository = (*ImpressionLedger)(nil)

func impressionKey(userID string, cardType models.CardType, contentID string) string {
	return fmt.Sprintf("feed:impressions:%s:%s:%s", userID, cardType, contentID)
}

// Get returns the entry for key or repository.ErrImpressionNotFound
func (l *ImpressionLedger) Get(ctx context.Context, key models.ImpressionKey) (*models.FeedImpression, error) {
	values, err := l.rc.client.HGetAll(ctx, impressionKey(key.UserID, key.CardType, key.ContentID)).Result()
	if err != nil {
		return nil, err
	}
	return decodeImpression(key, values)
}

// ListForContent reads every requested entry in a single pipeline round trip
func (l *ImpressionLedger) ListForContent(ctx context.Context, userID string, cardType models.CardType, contentIDs []string) ([]models.FeedImpression, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(contentIDs))
	_, err := l.rc.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range contentIDs {
			cmds[i] = pipe.HGetAll(ctx, impressionKey(userID, cardType, id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := make([]models.FeedImpression, 0, len(contentIDs))
	for i, cmd := range cmds {
		key := models.ImpressionKey{UserID: userID, CardType: cardType, ContentID: contentIDs[i]}
		row, err := decodeImpression(key, cmd.Val())
		if err == repository.ErrImpressionNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

// Increment records one display of key at shownAt
func (l *ImpressionLedger) Increment(ctx context.Context, key models.ImpressionKey, sourceContentID *string, shownAt time.Time) error {
	if key.UserID == "" || key.CardType == "" || key.ContentID == "" {
		return repository.ErrInvalidInput
	}

	hashKey := impressionKey(key.UserID, key.CardType, key.ContentID)
	ts := strconv.FormatInt(shownAt.UTC().UnixNano(), 10)

	_, err := l.rc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, hashKey, fieldCount, 1)
		pipe.HSetNX(ctx, hashKey, fieldFirstShow, ts)
		pipe.HSet(ctx, hashKey, fieldLastShow, ts)
		if sourceContentID != nil && *sourceContentID != "" {
			pipe.HSetNX(ctx, hashKey, fieldSource, *sourceContentID)
		}
		return nil
	})
	return err
}

// decodeImpression converts a hash into a ledger row. An empty hash means
// the key has never been written.
func decodeImpression(key models.ImpressionKey, values map[string]string) (*models.FeedImpression, error) {
	if len(values) == 0 {
		return nil, repository.ErrImpressionNotFound
	}

	count, err := strconv.Atoi(values[fieldCount])
	if err != nil {
		return nil, fmt.Errorf("corrupt impression count for %s: %w", key.ContentID, err)
	}
	first, err := parseNanos(values[fieldFirstShow])
	if err != nil {
		return nil, fmt.Errorf("corrupt first_shown_at for %s: %w", key.ContentID, err)
	}
	last, err := parseNanos(values[fieldLastShow])
	if err != nil {
		return nil, fmt.Errorf("corrupt last_shown_at for %s: %w", key.ContentID, err)
	}

	row := &models.FeedImpression{
		UserID:          key.UserID,
		CardType:        key.CardType,
		ContentID:       key.ContentID,
		ImpressionCount: count,
		FirstShownAt:    first,
		LastShownAt:     last,
	}
	if src, ok := values[fieldSource]; ok && src != "" {
		row.SourceContentID = &src
	}
	return row, nil
}

func parseNanos(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}
