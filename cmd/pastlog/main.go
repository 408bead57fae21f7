package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"pastlog/internal/cache"
	"pastlog/internal/config"
	"pastlog/internal/handler/api"
	"pastlog/internal/logging"
	"pastlog/internal/middleware"
	"pastlog/internal/scheduler"
	"pastlog/internal/service"
	"pastlog/internal/session"
	"pastlog/internal/store"
	"pastlog/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func buildInfo() version.Info {
	return version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
}

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "pastlog - application event log service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PASTLOG_DB_PATH             SQLite database path (default: ./data/pastlog.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PASTLOG_SERVER_PORT         Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PASTLOG_ENV                 Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PASTLOG_LOG_LEVEL           Log level: debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PASTLOG_EVENTLOG_MIN_LEVEL  Lowest log level mirrored to the event log (default: warn)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PASTLOG_REDIS_URL           Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PASTLOG_RETENTION_DAYS      Days to keep events, 0 disables purging (default: 30)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Println(buildInfo().String())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	ctx := context.Background()

	// Initialize event service. It keeps the plain text logger so failures
	// inside the event log never loop back into it.
	events := service.NewEventService(db)
	events.SetLogger(logger)
	events.SetActorProvider(session.ContextActorProvider{})

	// Initialize cache
	eventCache, err := cache.New(ctx, cache.Config{
		RedisURL: cfg.RedisURL,
		Prefix:   cfg.CachePrefix,
	})
	if err != nil {
		slog.Warn("redis unavailable, using in-memory cache", "error", err)
		eventCache = cache.NewMemory()
	}
	defer func() {
		if err := eventCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	events.SetCache(eventCache, cfg.CacheExpiry())
	if cfg.UseRedisCache() {
		slog.Info("cache initialized", "backend", "redis", "url", cfg.RedisURL)
	} else {
		slog.Info("cache initialized", "backend", "memory")
	}

	// Upgrade the default logger to also mirror records into the event log
	eventLogHandler := logging.NewEventLogHandlerWithLevel(textHandler, events, cfg.EventLogLevel())
	slog.SetDefault(slog.New(eventLogHandler))
	slog.Info("event log integration enabled", "min_level", cfg.EventLogMinLevel)

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Start the retention scheduler
	purgeScheduler := scheduler.New(events, logger, cfg.Retention())
	if err := purgeScheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer purgeScheduler.Stop()

	// Initialize handlers
	apiHandler := api.NewHandler(events)
	healthHandler := api.NewHealthHandler(db)

	// Create router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(sessionManager.LoadAndSave)
	r.Use(session.Middleware(sessionManager))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)

	// REST API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		apiRateLimiter := middleware.NewGlobalRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		r.Use(apiRateLimiter.Middleware())

		r.Get("/status", apiHandler.Status)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", apiHandler.ListEvents)
			r.Post("/", apiHandler.CreateEvent)
			r.Get("/{id}", apiHandler.GetEvent)
			r.Delete("/{id}", apiHandler.DeleteEvent)
		})

		r.Route("/event-types", func(r chi.Router) {
			r.Get("/", apiHandler.ListEventTypes)
			r.Put("/{type}", apiHandler.SaveEventType)
			r.Delete("/{type}", apiHandler.DeleteEventType)
		})
	})
	slog.Info("REST API v1 mounted at /api/v1", "rate_limit_rps", cfg.RateLimitRPS, "rate_limit_burst", cfg.RateLimitBurst)

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", buildInfo().Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
