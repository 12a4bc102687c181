// Package kernel wires configuration, stores and the feed engines together.
package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/zfogg/watchfeed/internal/activity"
	"github.com/zfogg/watchfeed/internal/cache"
	"github.com/zfogg/watchfeed/internal/catalog"
	"github.com/zfogg/watchfeed/internal/config"
	"github.com/zfogg/watchfeed/internal/exclusion"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/repository"
	"github.com/zfogg/watchfeed/internal/similar"
	"github.com/zfogg/watchfeed/internal/tastematch"
	"github.com/zfogg/watchfeed/internal/throttle"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kernel holds the process dependencies and provides type-safe access
type Kernel struct {
	cfg *config.Config

	// Core infrastructure
	db    *gorm.DB
	cache *cache.RedisClient

	// Stores and clients
	taste       repository.TasteRepository
	impressions repository.ImpressionRepository
	catalog     *catalog.Client

	// Engines
	exclusions *exclusion.Builder
	similar    *similar.Service
	tasteMatch *tastematch.Service
	throttle   *throttle.Throttle
	activity   *activity.Service

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a kernel from an open database and an optional Redis client.
// The impression ledger lives in Redis when cfg selects it and a client is given.
func New(cfg *config.Config, db *gorm.DB, redisClient *cache.RedisClient) *Kernel {
	k := &Kernel{
		cfg:          cfg,
		db:           db,
		cache:        redisClient,
		cleanupFuncs: make([]func(context.Context) error, 0),
	}

	k.taste = repository.NewTasteRepository(db)
	if cfg.ImpressionBackend == "redis" && redisClient != nil {
		k.impressions = cache.NewImpressionLedger(redisClient)
	} else {
		k.impressions = repository.NewImpressionRepository(db)
	}

	k.catalog = catalog.NewClient(catalog.Config{
		BaseURL:           cfg.Catalog.BaseURL,
		APIKey:            cfg.Catalog.APIKey,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Timeout:           cfg.Catalog.Timeout,
	})

	k.exclusions = exclusion.NewBuilder(k.taste)
	k.throttle = throttle.New(k.impressions, throttle.Policy{
		MaxImpressions: cfg.Throttle.MaxImpressions,
		CooldownDays:   cfg.Throttle.CooldownDays,
	})
	k.similar = similar.NewService(k.catalog, k.exclusions, k.throttle, similar.Defaults{
		MinVoteCount: cfg.Similar.MinVoteCount,
		Limit:        cfg.Similar.Limit,
		MaxPages:     cfg.Similar.MaxPages,
	})
	k.tasteMatch = tastematch.NewService(k.taste)
	k.activity = activity.NewService(k.taste, activity.NewGrouper(cfg.Activity.GroupWindow))

	logger.Log.Info("Feed engine wired",
		zap.String("impression_backend", k.ImpressionBackend()),
		zap.Int("max_impressions", k.throttle.Defaults().MaxImpressions),
		zap.Int("cooldown_days", k.throttle.Defaults().CooldownDays))
	return k
}

// Config returns the configuration the kernel was built from
func (k *Kernel) Config() *config.Config {
	return k.cfg
}

// DB returns the database connection
func (k *Kernel) DB() *gorm.DB {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.db
}

// Cache returns the Redis client, or nil when Redis is not configured
func (k *Kernel) Cache() *cache.RedisClient {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.cache
}

// ImpressionBackend names the store the exposure ledger uses
func (k *Kernel) ImpressionBackend() string {
	if _, ok := k.impressions.(*cache.ImpressionLedger); ok {
		return "redis"
	}
	return "postgres"
}

// Taste returns the taste repository
func (k *Kernel) Taste() repository.TasteRepository { return k.taste }

// Impressions returns the exposure ledger
func (k *Kernel) Impressions() repository.ImpressionRepository { return k.impressions }

// Catalog returns the media catalog client
func (k *Kernel) Catalog() *catalog.Client { return k.catalog }

// Exclusions returns the exclusion set builder
func (k *Kernel) Exclusions() *exclusion.Builder { return k.exclusions }

// Similar returns the similar content ranker
func (k *Kernel) Similar() *similar.Service { return k.similar }

// TasteMatch returns the taste match service
func (k *Kernel) TasteMatch() *tastematch.Service { return k.tasteMatch }

// Throttle returns the exposure throttle
func (k *Kernel) Throttle() *throttle.Throttle { return k.throttle }

// Activity returns the activity feed service
func (k *Kernel) Activity() *activity.Service { return k.activity }

// ============================================================================
// LIFECYCLE MANAGEMENT
// ============================================================================

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (k *Kernel) OnCleanup(fn func(context.Context) error) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cleanupFuncs = append(k.cleanupFuncs, fn)
	return k
}

// Cleanup runs every cleanup function in reverse order of registration.
// Failures are logged and cleanup continues; the first error is returned.
func (k *Kernel) Cleanup(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var first error
	for i := len(k.cleanupFuncs) - 1; i >= 0; i-- {
		if err := k.cleanupFuncs[i](ctx); err != nil {
			logger.Log.Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
			if first == nil {
				first = fmt.Errorf("cleanup %d: %w", i, err)
			}
		}
	}
	k.cleanupFuncs = nil
	return first
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate checks that all required dependencies are registered
func (k *Kernel) Validate() error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	missingDeps := []string{}
	if k.cfg == nil {
		missingDeps = append(missingDeps, "configuration")
	}
	if k.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if k.cfg != nil && k.cfg.ImpressionBackend == "redis" && k.cache == nil {
		missingDeps = append(missingDeps, "Redis client (IMPRESSION_BACKEND=redis)")
	}

	if len(missingDeps) > 0 {
		return NewInitializationError("Missing required dependencies", missingDeps)
	}
	return nil
}
