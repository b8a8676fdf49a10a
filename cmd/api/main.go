package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sjperalta/pratiche-api/docs" // Swagger docs
	"github.com/sjperalta/pratiche-api/internal/config"
	"github.com/sjperalta/pratiche-api/internal/database"
	"github.com/sjperalta/pratiche-api/internal/handlers"
	"github.com/sjperalta/pratiche-api/internal/jobs"
	"github.com/sjperalta/pratiche-api/internal/metrics"
	"github.com/sjperalta/pratiche-api/internal/middleware"
	"github.com/sjperalta/pratiche-api/internal/repository"
	"github.com/sjperalta/pratiche-api/internal/services"
	"github.com/sjperalta/pratiche-api/internal/storage"
	"github.com/sjperalta/pratiche-api/pkg/logger"
)

// @title Pratiche API
// @version 1.0
// @description Amortization plans, interest accrual and installment payments for debt-recovery cases

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment, cfg.LogLevel)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get database handle", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized receipt storage", "path", cfg.StoragePath)

	// Rate cache is optional
	var redisClient *redis.Client
	var cache repository.Cache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		cache = repository.NewRedisCache(redisClient)
		logger.Info("Rate cache enabled", "ttl", cfg.GetRateCacheTTL().String())
	} else {
		logger.Warn("REDIS_URL not set, rate table is read from the database on every lookup")
	}

	repos := repository.NewRepositories(db, cache, cfg.GetRateCacheTTL())

	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	m := metrics.New()
	svcs := services.NewServices(repos, worker, m, cfg)

	scheduleJobs(worker, repos, cfg)

	h := handlers.NewHandlers(svcs, store, sqlDB, redisClient, worker)
	router := setupRouter(h, m, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Pending audit writes finish before the database closes
	worker.Shutdown()
	logger.Info("Background worker stopped")

	if redisClient != nil {
		_ = redisClient.Close()
	}
	_ = sqlDB.Close()

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, m *metrics.Metrics, cfg *config.Config) *gin.Engine {
	router := gin.New()

	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.GetAllowedOrigins()))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Index)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Read access for every authenticated user
			protected.GET("/cases/:case_id/plan", h.Plan.ShowByCase)
			protected.GET("/plans/:plan_id", h.Plan.Show)
			protected.GET("/plans/:plan_id/export", h.Plan.Export)
			protected.GET("/plans/:plan_id/audits", h.Plan.Audits)
			protected.GET("/installments/:installment_id/audits", h.Installment.Audits)
			protected.GET("/installments/:installment_id/receipt", h.Installment.DownloadReceipt)
			protected.GET("/rates", h.Rate.Index)
			protected.GET("/rates/resolve", h.Rate.Resolve)
			protected.POST("/plans/preview", h.Plan.Preview)

			// Case handlers
			operator := protected.Group("")
			operator.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleOperator))
			{
				operator.POST("/cases/:case_id/plan", h.Plan.Upsert)
				operator.POST("/plans/:plan_id/close", h.Plan.Close)
				operator.POST("/plans/:plan_id/reopen", h.Plan.Reopen)
				operator.POST("/plans/:plan_id/enter_principal", h.Plan.EnterPrincipal)
				operator.POST("/installments/:installment_id/pay", h.Installment.Pay)
				operator.POST("/installments/:installment_id/reverse", h.Installment.Reverse)
				operator.POST("/installments/:installment_id/receipt", h.Installment.UploadReceipt)
			}

			admin := protected.Group("")
			admin.Use(middleware.RequireRole(middleware.RoleAdmin))
			{
				admin.DELETE("/plans/:plan_id", h.Plan.Delete)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, repos *repository.Repositories, cfg *config.Config) {
	if repos.RateCache == nil {
		return
	}

	// Keep the cached rate table warm
	interval := cfg.GetRateCacheTTL() / 2
	worker.ScheduleEvery("rate-cache-refresh", interval, true, func(ctx context.Context) error {
		logger.Debug("[Job] Refreshing rate cache...")
		return repos.RateCache.Refresh(ctx)
	})

	logger.Info("Scheduled recurring jobs", "rate_cache_refresh", interval.String())
}
