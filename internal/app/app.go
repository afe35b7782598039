package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smartshelf/catalog-service/internal/cache"
	"github.com/smartshelf/catalog-service/internal/catalog"
	"github.com/smartshelf/catalog-service/internal/handler"
	"github.com/smartshelf/catalog-service/internal/storage/postgres"
	"github.com/smartshelf/catalog-service/pkg/health"
	"github.com/smartshelf/catalog-service/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the service.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Cache collaborator: Redis when configured, in-process LRU otherwise.
	var store catalog.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = redisCache.Close() }()
		healthSvc.AddReadinessCheck("redis", 5*time.Second, redisCache.Ping)
		store = redisCache
	} else {
		lg.Warn("No Redis URL configured, using in-process cache")
		store = cache.NewMemory(cfg.Cache.MemorySize)
	}

	// Search analytics: persisted when a database is configured.
	recorder := catalog.NopRecorder
	var analytics handler.SearchAnalytics
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, pool.Ping)
		metrics := postgres.NewSearchMetrics(pool, lg.Named("metrics"))
		recorder = metrics
		analytics = metrics
	}

	client := catalog.NewClient(catalog.Config{
		APIKey:         cfg.Upstream.APIKey,
		APIHost:        cfg.Upstream.APIHost,
		MaxConcurrent:  cfg.Upstream.MaxConcurrent,
		TracerProvider: m.TracerProvider(),
	}, store, recorder)
	defer client.Close()

	if cfg.Upstream.APIKey == "" {
		lg.Warn("Catalog API key not configured, upstream fetches are disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(otelgin.Middleware("catalog-service",
		otelgin.WithTracerProvider(m.TracerProvider())))
	router.GET("/livez", gin.WrapF(healthSvc.LiveEndpoint))
	router.GET("/readyz", gin.WrapF(healthSvc.ReadyEndpoint))
	handler.New(client, analytics).Register(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				MaxAge:       cfg.CORS.MaxAge,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: mark not ready, drain, then stop the listener.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
