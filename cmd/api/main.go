package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HollandReese/bulwark/internal/auth"
	"github.com/HollandReese/bulwark/internal/background"
	"github.com/HollandReese/bulwark/internal/config"
	"github.com/HollandReese/bulwark/internal/database"
	"github.com/HollandReese/bulwark/internal/detection"
	"github.com/HollandReese/bulwark/internal/handlers"
	middlewareCustom "github.com/HollandReese/bulwark/internal/middleware"
	"github.com/HollandReese/bulwark/internal/repositories"
	"github.com/HollandReese/bulwark/internal/routes"
	"github.com/HollandReese/bulwark/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	eventRepo := repositories.NewIntrusionEventRepository(db)
	blockRepo := repositories.NewBlockedIPRepository(db)
	activityRepo := repositories.NewLoginActivityRepository(db)

	// Notification collaborator: SES when configured, log-only otherwise
	var notifier services.Notifier
	if cfg.Email.Enabled {
		sesNotifier, err := services.NewAWSSESNotifier(
			cfg.Email.AWSRegion,
			cfg.Email.FromAddress,
			cfg.Email.AlertAddress,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize alert notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	} else {
		notifier = services.NewLogNotifier(logger)
	}

	// Detection engine components
	blockService := services.NewBlockService(blockRepo, logger)

	detectionService := services.NewDetectionService(
		eventRepo,
		blockService,
		notifier,
		services.DetectionEngineConfig{
			AutoBlockDuration: cfg.Detection.AutoBlockDuration,
			DedupeWindow:      cfg.Detection.EventDedupeWindow,
		},
		logger,
	)

	loginMonitor := services.NewLoginMonitorService(
		activityRepo,
		detectionService,
		services.LoginMonitorConfig{
			Window:    cfg.Detection.BruteForceWindow,
			Threshold: cfg.Detection.BruteForceThreshold,
		},
		logger,
	)

	reportService := services.NewReportService(eventRepo, blockRepo)

	rateTracker := detection.NewRateTracker(detection.RateTrackerConfig{
		Window:               cfg.Detection.RateWindow,
		SoftThreshold:        cfg.Detection.RateSoftThreshold,
		EscalationMultiplier: cfg.Detection.RateEscalationMultiplier,
	})

	analyzer := detection.NewSignatureAnalyzer(
		detection.DefaultSignatures(),
		detection.DefaultExemptPaths(),
		cfg.Detection.MaxScanBytes,
	)

	gate := middlewareCustom.NewGate(blockService, rateTracker, analyzer, detectionService, logger)

	// Admin token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(tokenManager, cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash)
	adminHandler := handlers.NewAdminHandler(blockService, detectionService)
	reportHandler := handlers.NewReportHandler(reportService)
	loginOutcomeHandler := handlers.NewLoginOutcomeHandler(loginMonitor)

	// Background sweeper
	sweeper := background.NewSweeper(blockService, rateTracker, logger, cfg.Detection.SweepInterval)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(gate.Handler)

	// Register routes
	routes.RegisterRoutes(router, authHandler, adminHandler, reportHandler,
		loginOutcomeHandler, tokenManager, cfg.Auth.InternalToken)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
