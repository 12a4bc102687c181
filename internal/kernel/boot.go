package kernel

import (
	"context"
	"fmt"

	"github.com/zfogg/watchfeed/internal/cache"
	"github.com/zfogg/watchfeed/internal/config"
	"github.com/zfogg/watchfeed/internal/database"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/telemetry"
	"github.com/zfogg/watchfeed/internal/validation"
	"go.uber.org/zap"
)

// Boot opens every backing service named by cfg, runs the required-service
// checks and returns a wired kernel. Call Cleanup on shutdown.
func Boot(ctx context.Context, cfg *config.Config, serviceName string) (*Kernel, error) {
	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Enabled:      cfg.Telemetry.Enabled,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		// Tracing is optional
		logger.Log.Warn("Failed to initialize tracing", zap.Error(err))
	}

	if err := database.Initialize(cfg.Database.URL, cfg.Environment); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
		if err != nil {
			if cfg.ImpressionBackend == "redis" {
				_ = database.Close()
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			logger.Log.Warn("Redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		}
	}

	k := New(cfg, database.DB, redisClient)
	k.OnCleanup(func(context.Context) error { return database.Close() })
	if redisClient != nil {
		k.OnCleanup(func(context.Context) error { return redisClient.Close() })
	}
	if tp != nil {
		k.OnCleanup(tp.Shutdown)
	}

	if err := k.Validate(); err != nil {
		_ = k.Cleanup(ctx)
		return nil, err
	}

	if err := k.ServiceValidator().ValidateServices(ctx); err != nil {
		_ = k.Cleanup(ctx)
		return nil, err
	}
	return k, nil
}

// ServiceValidator returns the startup checker for cfg.RequiredServices
func (k *Kernel) ServiceValidator() *validation.ServiceValidator {
	sv := validation.NewServiceValidator(k.cfg.RequiredServices).
		Register("postgres", func(ctx context.Context) error { return database.Health(ctx, k.DB()) })

	sv.Register("redis", func(ctx context.Context) error {
		rc := k.Cache()
		if rc == nil {
			return fmt.Errorf("redis is not configured (set REDIS_HOST)")
		}
		return rc.Ping(ctx)
	})
	return sv
}

// Health reports the status of each backing service, keyed by name
func (k *Kernel) Health(ctx context.Context) map[string]error {
	status := map[string]error{"postgres": database.Health(ctx, k.DB())}
	if rc := k.Cache(); rc != nil {
		status["redis"] = rc.Ping(ctx)
	}
	return status
}
