package throttle

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/zfogg/watchfeed/internal/errors"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/metrics"
	"github.com/zfogg/watchfeed/internal/models"
	"github.com/zfogg/watchfeed/internal/repository"
	"github.com/zfogg/watchfeed/internal/telemetry"
	"github.com/zfogg/watchfeed/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	DefaultMaxImpressions = 2
	DefaultCooldownDays   = 2

	day = 24 * time.Hour
)

// Decision outcomes, also used as metric label values
const (
	DecisionAllow     = "allow"
	DecisionCooldown  = "cooldown"
	DecisionMaxedOut  = "maxed_out"
	DecisionFailOpen  = "fail_open"
	DecisionNoHistory = "unseen"
)

// Policy is the exposure limit applied to one card
type Policy struct {
	MaxImpressions int
	CooldownDays   int
}

// DefaultPolicy returns the built-in policy (2 impressions, 2 day cooldown)
func DefaultPolicy() Policy {
	return Policy{MaxImpressions: DefaultMaxImpressions, CooldownDays: DefaultCooldownDays}
}

func (p Policy) cooldown() time.Duration {
	return time.Duration(p.CooldownDays) * day
}

// Option overrides part of the throttle's policy for a single call
type Option func(*Policy)

// WithMaxImpressions overrides the impression cap. Values <= 0 keep the default.
func WithMaxImpressions(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.MaxImpressions = n
		}
	}
}

// WithCooldownDays overrides the cooldown. Negative values keep the default.
func WithCooldownDays(d int) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.CooldownDays = d
		}
	}
}

// Throttle gates re-display of non-organic feed cards using the impression ledger
type Throttle struct {
	store    repository.ImpressionRepository
	defaults Policy
	now      func() time.Time
}

// New creates a throttle over store. Invalid fields in defaults fall back to DefaultPolicy.
func New(store repository.ImpressionRepository, defaults Policy) *Throttle {
	base := DefaultPolicy()
	WithMaxImpressions(defaults.MaxImpressions)(&base)
	WithCooldownDays(defaults.CooldownDays)(&base)
	return &Throttle{store: store, defaults: base, now: time.Now}
}

// WithClock replaces the time source, for tests and replays
func (t *Throttle) WithClock(now func() time.Time) *Throttle {
	t.now = now
	return t
}

// Defaults returns the policy used when a call passes no options
func (t *Throttle) Defaults() Policy {
	return t.defaults
}

func (t *Throttle) policy(opts []Option) Policy {
	p := t.defaults
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Decide applies the policy to an existing ledger row (nil when the card was never shown)
func Decide(row *models.FeedImpression, cardType models.CardType, policy Policy, now time.Time) string {
	if row == nil {
		return DecisionNoHistory
	}
	if now.Sub(row.LastShownAt) < policy.cooldown() {
		return DecisionCooldown
	}
	if cardType.CapExempt() {
		return DecisionAllow
	}
	if row.ImpressionCount >= policy.MaxImpressions {
		return DecisionMaxedOut
	}
	return DecisionAllow
}

func allowed(decision string) bool {
	return decision == DecisionAllow || decision == DecisionNoHistory || decision == DecisionFailOpen
}

func normalizeKey(key models.ImpressionKey) (models.ImpressionKey, error) {
	key.UserID = strings.TrimSpace(key.UserID)
	key.ContentID = strings.TrimSpace(key.ContentID)
	if err := validation.Struct(key); err != nil {
		return key, err
	}
	if !key.CardType.Valid() {
		return key, apperrors.InvalidInput("card_type", "unknown card type "+string(key.CardType))
	}
	return key, nil
}

// ShouldShow reports whether the card identified by key may be displayed now.
// Store failures are logged and allow the card.
func (t *Throttle) ShouldShow(ctx context.Context, key models.ImpressionKey, opts ...Option) (bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return false, err
	}

	ctx, span := telemetry.StartEngineSpan(ctx, "throttle.should_show",
		attribute.String("card.type", string(key.CardType)),
	)
	defer span.End()

	policy := t.policy(opts)
	row, err := t.store.Get(ctx, key)

	var decision string
	switch {
	case errors.Is(err, repository.ErrImpressionNotFound):
		decision = DecisionNoHistory
	case err != nil:
		decision = DecisionFailOpen
		logger.Log.Warn("Impression lookup failed, allowing card",
			logger.WithUserID(key.UserID),
			logger.WithCardType(string(key.CardType)),
			logger.WithContentID(key.ContentID),
			zap.Error(err))
		metrics.Get().StoreFailures.WithLabelValues("impressions", "read").Inc()
		telemetry.MarkDegraded(span, "impression_read_failed", err)
	default:
		decision = Decide(row, key.CardType, policy, t.now())
	}

	metrics.Get().ThrottleDecisions.WithLabelValues(string(key.CardType), decision).Inc()
	span.SetAttributes(attribute.String("throttle.decision", decision))
	return allowed(decision), nil
}

// RecordImpression counts one display of the card. Call it exactly once per
// actual display; it is a counter, not a dedup flag. Store failures drop the write.
func (t *Throttle) RecordImpression(ctx context.Context, key models.ImpressionKey, sourceContentID string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartEngineSpan(ctx, "throttle.record_impression",
		attribute.String("card.type", string(key.CardType)),
	)
	defer span.End()

	var source *string
	if s := strings.TrimSpace(sourceContentID); s != "" {
		source = &s
	}

	if err := t.store.Increment(ctx, key, source, t.now()); err != nil {
		logger.Log.Warn("Impression write dropped",
			logger.WithUserID(key.UserID),
			logger.WithCardType(string(key.CardType)),
			logger.WithContentID(key.ContentID),
			zap.Error(err))
		metrics.Get().StoreFailures.WithLabelValues("impressions", "write").Inc()
		telemetry.MarkDegraded(span, "impression_write_dropped", err)
		return nil
	}

	metrics.Get().ImpressionsRecorded.WithLabelValues(string(key.CardType)).Inc()
	return nil
}

// ComputeShowableSet filters candidates down to the ones ShouldShow would allow,
// reading all of their ledger rows in one query. Ids are normalized the same way
// ShouldShow normalizes them; the returned set holds the ids as given.
func (t *Throttle) ComputeShowableSet(ctx context.Context, userID string, cardType models.CardType, candidateIDs []models.TitleID, opts ...Option) (models.TitleSet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.InvalidInput("user_id", "user id is required")
	}
	if !cardType.Valid() {
		return nil, apperrors.InvalidInput("card_type", "unknown card type "+string(cardType))
	}

	// normalized content id -> the candidate ids that map to it
	ids := make([]string, 0, len(candidateIDs))
	given := make(map[string][]models.TitleID, len(candidateIDs))
	for _, id := range candidateIDs {
		k, err := normalizeKey(models.ImpressionKey{UserID: userID, CardType: cardType, ContentID: string(id)})
		if err != nil {
			return nil, err
		}
		if _, ok := given[k.ContentID]; !ok {
			ids = append(ids, k.ContentID)
		}
		given[k.ContentID] = append(given[k.ContentID], id)
	}

	showable := make(models.TitleSet, len(candidateIDs))
	if len(ids) == 0 {
		return showable, nil
	}

	start := time.Now()
	ctx, span := telemetry.StartEngineSpan(ctx, "throttle.compute_showable_set",
		attribute.String("card.type", string(cardType)),
		attribute.Int("throttle.candidates", len(candidateIDs)),
	)
	defer span.End()

	rows, err := t.store.ListForContent(ctx, userID, cardType, ids)
	if err != nil {
		logger.Log.Warn("Impression batch lookup failed, allowing all candidates",
			logger.WithUserID(userID),
			logger.WithCardType(string(cardType)),
			zap.Int("candidates", len(ids)),
			zap.Error(err))
		metrics.Get().StoreFailures.WithLabelValues("impressions", "read").Inc()
		metrics.Get().ThrottleDecisions.WithLabelValues(string(cardType), DecisionFailOpen).Add(float64(len(ids)))
		telemetry.MarkDegraded(span, "impression_read_failed", err)
		metrics.Stats().Observe(metrics.OpShowableSet, start, true)
		showable.Add(candidateIDs...)
		return showable, nil
	}

	byContent := make(map[string]*models.FeedImpression, len(rows))
	for i := range rows {
		byContent[rows[i].ContentID] = &rows[i]
	}

	policy := t.policy(opts)
	now := t.now()
	for _, id := range ids {
		decision := Decide(byContent[id], cardType, policy, now)
		metrics.Get().ThrottleDecisions.WithLabelValues(string(cardType), decision).Inc()
		if allowed(decision) {
			showable.Add(given[id]...)
		}
	}

	span.SetAttributes(attribute.Int("throttle.showable", len(showable)))
	metrics.Stats().Observe(metrics.OpShowableSet, start, false)
	return showable, nil
}
