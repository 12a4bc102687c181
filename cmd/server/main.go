package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/watchfeed/internal/config"
	"github.com/zfogg/watchfeed/internal/kernel"
	"github.com/zfogg/watchfeed/internal/logger"
	"github.com/zfogg/watchfeed/internal/metrics"
	"github.com/zfogg/watchfeed/internal/middleware"
	"go.uber.org/zap"
)

const serviceName = "watchfeed-engine"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Feed engine ops server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("impression_backend", cfg.ImpressionBackend))

	metrics.Initialize()

	ctx := context.Background()
	k, err := kernel.Boot(ctx, cfg, serviceName)
	if err != nil {
		logger.Log.Fatal("Failed to start feed engine", zap.Error(err))
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(k)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("Ops server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := k.Cleanup(shutdownCtx); err != nil {
		logger.Log.Warn("Cleanup finished with errors", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

// healthChecker is the part of the kernel the health endpoint needs
type healthChecker interface {
	Health(ctx context.Context) map[string]error
}

func newRouter(k healthChecker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.TracingMiddleware(serviceName)...)
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.GinLoggerMiddleware())

	// Dashboards poll /health cross-origin; the ops surface is read-only
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "OPTIONS"}
	r.Use(cors.New(config))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", healthHandler(k))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Stats().Snapshot())
	})
	return r
}

func healthHandler(k healthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		services := gin.H{}
		for name, err := range k.Health(ctx) {
			if err != nil {
				status = http.StatusServiceUnavailable
				services[name] = err.Error()
				continue
			}
			services[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":    overall,
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
			"services":  services,
		})
	}
}
