package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"golang.org/x/time/rate"

	"github.com/ColeUyematsu/RoomMatchv2/internal/api/handlers"
	"github.com/ColeUyematsu/RoomMatchv2/internal/api/middleware"
	"github.com/ColeUyematsu/RoomMatchv2/internal/config"
	"github.com/ColeUyematsu/RoomMatchv2/internal/observability"
	"github.com/ColeUyematsu/RoomMatchv2/internal/repository"
	"github.com/ColeUyematsu/RoomMatchv2/internal/service"
	"github.com/ColeUyematsu/RoomMatchv2/internal/workers"
	"github.com/ColeUyematsu/RoomMatchv2/pkg/database"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Configure slog with the log level from config
	setupLogging(cfg.LogLevel)

	// Initialize metrics if enabled
	var (
		metrics        observability.MatcherMetrics
		metricsHandler http.Handler
		meterShutdown  observability.MeterProviderShutdown
	)
	if cfg.MetricsEnabled {
		meterShutdown, metricsHandler, metrics, err = observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
		if err != nil {
			slog.Error("Failed to initialize metrics", "error", err)
			os.Exit(1)
		}
	}

	// Initialize database connection; answer embeddings use the pgvector type.
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	responsesRepo := repository.NewResponsesRepository(db)
	matchesRepo := repository.NewMatchesRepository(db)

	// Initialize services
	matchingService, err := service.NewMatchingService(service.MatchingServiceParams{
		Responses: responsesRepo,
		Index:     responsesRepo,
		Metrics:   metrics,
		TopN:      cfg.TopNResults,
		CacheSize: cfg.MatchCacheSize,
	})
	if err != nil {
		slog.Error("Failed to initialize matching service", "error", err)
		os.Exit(1)
	}

	clusteringService := service.NewClusteringService(service.ClusteringParams{
		Repo:          responsesRepo,
		Seed:          cfg.ClusterSeed,
		Restarts:      cfg.ClusterRestarts,
		MaxIterations: cfg.ClusterMaxIterations,
	})

	orchestrator := service.NewMatchOrchestrator(service.OrchestratorParams{
		Responses: responsesRepo,
		Matches:   matchesRepo,
		Metrics:   metrics,
		TopN:      cfg.TopNRounds,
		MaxRounds: cfg.MaxRounds,
	})

	// Initialize River job queue if enabled
	var riverClient *river.Client[pgx.Tx]
	var inserter handlers.MatchingRunInserter
	if cfg.RiverEnabled {
		riverClient, err = initRiver(ctx, db, cfg, orchestrator, metrics, matchingService.InvalidateCache)
		if err != nil {
			slog.Error("Failed to initialize River job queue", "error", err)
			os.Exit(1)
		}
		inserter = workers.NewRiverMatchingInserter(riverClient)
		slog.Info("River job queue enabled",
			"workers", cfg.RiverWorkers,
			"matching_interval", cfg.MatchingInterval,
		)
	} else {
		slog.Info("River job queue disabled (RIVER_ENABLED=false), matching runs execute inline")
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	responsesHandler := handlers.NewResponsesHandler(responsesRepo, matchingService.InvalidateCache)
	matchesHandler := handlers.NewMatchesHandler(matchingService, matchesRepo)
	clusteringHandler := handlers.NewClusteringHandler(clusteringService)
	adminHandler := handlers.NewAdminHandler(inserter, orchestrator, responsesRepo, matchesRepo)

	// Set up public endpoints (no authentication required)
	publicMux := http.NewServeMux()
	publicMux.HandleFunc("GET /health", healthHandler.Check)
	publicMux.HandleFunc("GET /ready", healthHandler.Ready)
	if metricsHandler != nil {
		publicMux.Handle("GET /metrics", metricsHandler)
	}

	// Set up protected endpoints (authentication required)
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /v1/responses", responsesHandler.Submit)
	protectedMux.HandleFunc("GET /v1/responses/{user_id}", responsesHandler.Get)

	protectedMux.HandleFunc("GET /v1/match-results", matchesHandler.BestMatches)
	protectedMux.HandleFunc("GET /v1/matches/{user_id}", matchesHandler.ListCommitted)
	protectedMux.HandleFunc("GET /v1/users/{user_id}/similar", matchesHandler.Similar)

	protectedMux.HandleFunc("POST /v1/clustering/run", clusteringHandler.Cluster)

	protectedMux.HandleFunc("POST /v1/admin/matching/run", adminHandler.RunMatching)
	protectedMux.HandleFunc("GET /v1/admin/stats", adminHandler.Stats)

	// Apply middleware to protected endpoints
	var protectedHandler http.Handler = protectedMux
	protectedHandler = middleware.Auth(cfg.APIKey)(protectedHandler)
	protectedHandler = middleware.MaxBody(cfg.MaxBodyBytes)(protectedHandler)

	// Combine both handlers
	mainMux := http.NewServeMux()
	mainMux.Handle("/v1/", protectedHandler)
	mainMux.Handle("/", publicMux) // Catch-all for public routes (/health, /metrics)

	// Request ID must wrap Logging so log lines carry the ID.
	var handler http.Handler = middleware.Logging(mainMux)
	handler = middleware.RequestID(handler)
	handler = middleware.Metrics(metrics)(handler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Stop accepting new HTTP requests
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// 2. Stop River (waits for in-flight matching runs to complete)
	if riverClient != nil {
		slog.Info("Stopping River job queue...")
		if err := riverClient.Stop(shutdownCtx); err != nil {
			slog.Error("River forced to shutdown", "error", err)
		}
		slog.Info("River job queue stopped")
	}

	// 3. Flush metrics
	if meterShutdown != nil {
		if err := meterShutdown.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics provider forced to shutdown", "error", err)
		}
	}

	slog.Info("Server exited")
}

// setupLogging configures slog with the specified log level
func setupLogging(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := observability.NewTraceContextHandler(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(slog.New(handler))
}

// initRiver initializes the River job queue client and the matching worker
func initRiver(
	ctx context.Context,
	db *pgxpool.Pool,
	cfg *config.Config,
	orchestrator *service.MatchOrchestrator,
	metrics observability.MatcherMetrics,
	onCommitted func(),
) (*river.Client[pgx.Tx], error) {
	// Throttle how often triggered runs actually execute
	var limiter *rate.Limiter
	if cfg.MatchingRunsPerHour > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(cfg.MatchingRunsPerHour)), 1)
	}

	matchingWorker := workers.NewMatchingRunWorker(workers.MatchingRunWorkerParams{
		Orchestrator: orchestrator,
		Limiter:      limiter,
		Metrics:      metrics,
		OnCommitted:  onCommitted,
	})

	// Register workers
	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, matchingWorker)

	riverCfg := &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.RiverWorkers},
		},
		Workers: riverWorkers,
	}

	// Schedule periodic matching runs when an interval is configured
	if cfg.MatchingInterval > 0 {
		riverCfg.PeriodicJobs = []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.MatchingInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return service.MatchingRunArgs{Trigger: "scheduled"}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: false},
			),
		}
	}

	// Create River client
	riverClient, err := river.NewClient(riverpgxv5.New(db), riverCfg)
	if err != nil {
		return nil, err
	}

	// Start River (begins processing jobs)
	if err := riverClient.Start(ctx); err != nil {
		return nil, err
	}

	return riverClient, nil
}
