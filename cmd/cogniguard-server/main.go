package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cogniguard/cogniguard/internal/config"
	"github.com/cogniguard/cogniguard/internal/domain/analytics"
	"github.com/cogniguard/cogniguard/internal/domain/assessment"
	"github.com/cogniguard/cogniguard/internal/domain/conversation"
	"github.com/cogniguard/cogniguard/internal/domain/user"
	"github.com/cogniguard/cogniguard/internal/domain/voice"
	"github.com/cogniguard/cogniguard/internal/platform/auth"
	"github.com/cogniguard/cogniguard/internal/platform/db"
	"github.com/cogniguard/cogniguard/internal/platform/middleware"
	"github.com/cogniguard/cogniguard/internal/platform/telemetry"
	"github.com/cogniguard/cogniguard/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "cogniguard-server",
		Short: "CogniGuard cognitive health monitoring API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the CogniGuard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return runMigrations(dir)
		},
	}
	upCmd.Flags().String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return migrationStatus(dir)
		},
	}
	statusCmd.Flags().String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runMigrations(dir string) error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := db.NewMigrator(pool, dir).Up(ctx)
	if err != nil {
		return err
	}
	logger.Info().Int("applied", applied).Msg("migrations complete")
	return nil
}

func migrationStatus(dir string) error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	statuses, err := db.NewMigrator(pool, dir).Status(ctx)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		evt := logger.Info().Int("version", s.Version).Str("name", s.Name).Bool("applied", s.Applied)
		if s.AppliedAt != nil {
			evt = evt.Time("applied_at", *s.AppliedAt)
		}
		evt.Msg("migration")
	}
	return nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Telemetry
	tp := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{
		ServiceName:    "cogniguard-server",
		ServiceVersion: version,
		Environment:    cfg.Env,
	})
	defer tp.Shutdown(ctx)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(middleware.Audit(logger))
	e.Use(tp.TracingMiddleware())
	e.Use(tp.MetricsMiddleware())

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", tp.PrometheusHandler())

	// WebSocket hub
	hub := websocket.NewHub()
	websocket.NewHandler(hub).RegisterRoutes(e.Group(""))

	// API group with rate limiting
	api := e.Group("/api")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Auth
	issuer := auth.NewTokenIssuer(cfg.ResolvedJWTSecret(), cfg.JWTExpiryHours)
	protected := e.Group("/api")
	protected.Use(middleware.RateLimit(rateLimitCfg))
	protected.Use(issuer.Middleware())

	cacheCfg := middleware.DefaultCacheConfig()
	cacheCfg.ExcludePaths = []string{"/api/conversations/upload"}
	protected.Use(middleware.ETagMiddleware(cacheCfg))
	protected.Use(middleware.ConditionalRequestMiddleware())

	// Per-user response cache; writes invalidate the reads they make stale.
	respCache := middleware.NewInMemoryCacheStore()
	respCache.StartCleanup(ctx, 10*time.Minute)
	protected.Use(middleware.ResponseCacheMiddleware(respCache, time.Minute))

	// Repositories
	userRepo := user.NewPGRepository(pool)
	convRepo := conversation.NewPGRepository(pool)
	msgRepo := conversation.NewPGMessageRepository(pool)
	assessRepo := assessment.NewPGRepository(pool)
	analyticsRepo := analytics.NewPGRepository(pool)
	deviceRepo := voice.NewPGDeviceRepository(pool)
	auditRepo := voice.NewPGAuditRepository(pool)

	// Services
	userSvc := user.NewService(userRepo, issuer, logger)
	convSvc := conversation.NewService(convRepo, msgRepo, userRepo, hub, nil, logger)
	assessSvc := assessment.NewService(assessRepo, userRepo, logger)
	analyticsSvc := analytics.NewService(analyticsRepo, userRepo, logger)
	voiceSvc := voice.NewService(deviceRepo, auditRepo, logger)

	// Domain metrics
	health := tp.HealthMetrics()
	convSvc.SetMetrics(tp, health.SetActiveConversations)
	assessSvc.SetMetrics(tp)
	hub.SetClientGauge(health.SetWebsocketClients)

	// Handlers
	user.NewHandler(userSvc).RegisterRoutes(api, protected)
	conversation.NewHandler(convSvc).RegisterRoutes(protected)
	assessment.NewHandler(assessSvc).RegisterRoutes(protected)
	analytics.NewHandler(analyticsSvc).RegisterRoutes(protected)

	// Voice endpoints get per-device tiered limits instead of the global
	// token bucket, keyed on the X-Device-ID header.
	clientLimiter := middleware.NewClientRateLimiter()
	go clientLimiter.StartCleanup(ctx, time.Hour)

	voiceGroup := e.Group("/api")
	voiceGroup.Use(middleware.ClientRateLimitMiddleware(clientLimiter))
	voiceGroup.Use(auth.VoiceToken(cfg.VoiceAPIToken))
	voice.NewHandler(voiceSvc).RegisterRoutes(voiceGroup)

	middleware.NewRateLimitHandler(clientLimiter).RegisterRoutes(protected)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
