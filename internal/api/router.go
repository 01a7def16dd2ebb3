package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"recipe-ingest/internal/api/handlers/health"
	"recipe-ingest/internal/api/handlers/ingest"
	"recipe-ingest/internal/api/middleware"
	"recipe-ingest/internal/core/ai/cache"
	"recipe-ingest/internal/core/ai/image"
	"recipe-ingest/internal/core/ai/openrouter"
	"recipe-ingest/internal/core/ai/queue"
	"recipe-ingest/internal/core/extraction"
	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/core/scraper"
	"recipe-ingest/internal/infrastructure/config"
	"recipe-ingest/internal/pkg/common"
	"recipe-ingest/internal/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services are the core components the router exposes. Queue is optional and only reported on /ready.
type Services struct {
	Scraper   ingest.Scraper
	Extractor ingest.Extractor
	Queue     *queue.Manager
}

// SetupRouter builds the core services from cfg and returns the router serving them, plus a
// function releasing what they hold. store may be nil when the reply cache is disabled.
func SetupRouter(cfg *config.Config, store cache.Store) (*gin.Engine, func(), error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	fetcher := scraper.NewFetcher(scraper.FetcherConfig{
		UserAgent:     cfg.Scrape.UserAgent,
		Timeout:       cfg.Scrape.Timeout,
		MaxBodyBytes:  cfg.Scrape.MaxBodyBytes,
		RespectRobots: cfg.Scrape.RespectRobots,
	})
	registry := scraper.NewRegistry()

	cleanup := func() {}
	var (
		pipeline *extraction.Pipeline
		pool     *queue.Manager
	)
	if cfg.OpenRouter.Enabled {
		var completer extraction.Completer = openrouter.NewClient(cfg.OpenRouter)
		if cfg.Queue.Workers > 0 {
			pool = queue.NewManager(completer, cfg.Queue.Workers, cfg.Queue.MaxSize)
			completer = pool
			cleanup = pool.Close
		}
		pipeline = extraction.NewPipeline(
			cfg.OpenRouter,
			completer,
			image.NewProcessor(cfg.Image.MaxSizeBytes, cfg.Image.MaxDimension, cfg.Image.MaxPixels),
			store,
		)
	}

	common.LogInfo("Services initialized",
		zap.Strings("specialized_hosts", registry.Hosts()),
		zap.Bool("extraction_enabled", pipeline.Enabled()),
		zap.String("model", cfg.OpenRouter.Model),
		zap.String("api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		zap.Bool("cache_enabled", store != nil),
	)

	svc := Services{Scraper: scraper.New(registry, fetcher)}
	if pipeline != nil {
		svc.Extractor = pipeline
	}
	if pool != nil {
		svc.Queue = pool
	}

	router := NewRouter(cfg, svc)
	if router == nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build router")
	}
	return router, cleanup, nil
}

// NewRouter wires middleware and routes around svc.
func NewRouter(cfg *config.Config, svc Services) *gin.Engine {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.Server.MaxBodyBytes > 0 {
		router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	}

	if timeout := cfg.Server.RequestTimeout; timeout > 0 {
		router.Use(func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}

	features := map[string]bool{
		"scrape":     svc.Scraper != nil,
		"extraction": svc.Extractor != nil && svc.Extractor.Enabled(),
	}
	healthHandler := health.NewHandler(cfg.App.Version, features)
	if svc.Queue != nil {
		healthHandler.AddStatus("queue", func() interface{} { return svc.Queue.Status() })
	}
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	handler := ingest.NewHandler(svc.Scraper, svc.Extractor,
		recipe.CleanOptions{StrictLanguage: cfg.Validation.StrictLanguage}, cfg.App.Debug)

	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if cfg.Server.DedupWindow > 0 {
		api.Use(middleware.Deduplication(middleware.NewDeduplicator(cfg.Server.DedupWindow)))
	}
	{
		api.GET("/scrape", handler.ScrapeURL)
		api.POST("/scrape", handler.ScrapePage)
		api.POST("/from_image", handler.FromImage)
		api.POST("/from_text", handler.FromText)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, common.ErrorResponse{Code: common.ErrCodeNotFound, Message: "route not found"})
	})

	common.LogInfo("Router setup completed",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}
