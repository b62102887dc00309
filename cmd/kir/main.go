package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kir/internal/common/config"
	"kir/internal/common/logging"
	"kir/internal/common/metrics"
	vo "kir/internal/common/value_objects"
	"kir/internal/kir/api"
	"kir/internal/kir/application"
	"kir/internal/kir/domain"
	"kir/internal/kir/infrastructure/kafka"
	"kir/internal/kir/infrastructure/memory"
	"kir/internal/kir/infrastructure/postgres"
	kirredis "kir/internal/kir/infrastructure/redis"
)

const (
	sessionSweepInterval = time.Minute
	sessionIdleTimeout   = 30 * time.Minute
	poolStatsInterval    = 15 * time.Second
)

// dataStore is what both record backends provide.
type dataStore interface {
	domain.AtomicExecutor
	domain.Repositories
}

// dependency is a named readiness check.
type dependency struct {
	name string
	ping func(context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Generate correlation ID for startup
	startupCtx := logging.WithCorrelationID(context.Background(), vo.NewCorrelationID())

	logging.InfoContext(startupCtx, "Starting KIR wizard service",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"log_level", cfg.LogLevel,
		"store_backend", cfg.StoreBackend,
		"draft_backend", cfg.DraftBackend,
		"event_backend", cfg.EventBackend,
	)

	runCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var deps []dependency
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// Record store
	var store dataStore
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := cfg.NewPostgresPool(startupCtx)
		if err != nil {
			logging.ErrorContext(startupCtx, "Failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		closers = append(closers, pool.Close)
		pgStore := postgres.NewDataStore(pool)
		deps = append(deps, dependency{name: "postgres", ping: pgStore.Ping})
		go reportPoolStats(runCtx, pgStore)
		store = pgStore
	default:
		store = memory.NewDataStore()
	}

	// Draft storage
	var drafts domain.DraftStorage
	switch cfg.DraftBackend {
	case config.BackendRedis:
		client, err := cfg.NewRedisClient(startupCtx)
		if err != nil {
			logging.ErrorContext(startupCtx, "Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		closers = append(closers, func() { _ = client.Close() })
		deps = append(deps, dependency{name: "redis", ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
		drafts = kirredis.NewDraftStorage(client, kirredis.WithTTL(cfg.DraftTTL))
	default:
		drafts = memory.NewDraftStorage()
	}

	// Event publisher
	var publisher application.EventPublisher = application.LogPublisher{}
	if cfg.EventBackend == config.BackendKafka {
		kp, err := kafka.NewPublisher(cfg.KafkaBrokerList(), cfg.KafkaRecordTopic)
		if err != nil {
			logging.ErrorContext(startupCtx, "Failed to create kafka publisher", "error", err)
			os.Exit(1)
		}
		closers = append(closers, kp.Close)
		if err := kp.EnsureTopic(startupCtx, 3, 1); err != nil {
			logging.WarnContext(startupCtx, "Could not ensure record topic", "topic", cfg.KafkaRecordTopic, "error", err)
		}
		deps = append(deps, dependency{name: "kafka", ping: kp.Ping})
		publisher = kp
	}

	gateway := application.NewRecordGateway(store, time.Now)
	sessions := application.NewSessionManager(gateway, drafts, application.SystemClock{},
		application.WithAutosaveDelay(cfg.AutosaveDelay),
		application.WithNotifier(application.LogNotifier{}),
	)
	go sessions.Run(runCtx, sessionSweepInterval, sessionIdleTimeout)

	relay, err := application.NewOutboxRelay(store, publisher, cfg.OutboxBatchSize, cfg.OutboxInterval)
	if err != nil {
		logging.ErrorContext(startupCtx, "Failed to create outbox relay", "error", err)
		os.Exit(1)
	}
	go relay.Run(runCtx)

	// Setup HTTP server
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", healthHandler)

	// Ready check endpoint (checks dependencies)
	mux.HandleFunc("GET /ready", readyHandler(cfg, deps))

	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", metrics.Handler())

	api.NewHandler(sessions, gateway).RegisterRoutes(mux)

	logging.InfoContext(startupCtx, "KIR wizard initialized")

	// Middleware chain: metrics -> correlation -> handler
	handler := metrics.Middleware(correlationMiddleware(mux))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logging.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	// Pending autosaves are flushed before the stores close.
	sessions.Shutdown(ctx)
	stopWorkers()
	if _, err := relay.PublishPending(ctx); err != nil {
		logging.Warn("Final outbox publish failed", "error", err)
	}

	logging.Info("Server stopped")
}

// requestTimeout is the maximum time allowed for processing a single request.
const requestTimeout = 5 * time.Second

// correlationMiddleware adds correlation ID and request timeout to each request.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check for existing correlation ID in header
		corrID, err := vo.ParseCorrelationID(r.Header.Get("X-Correlation-ID"))
		if err != nil {
			corrID = vo.NewCorrelationID()
		}

		// Add request timeout to prevent runaway requests
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		ctx = logging.WithCorrelationID(ctx, corrID)

		if clientID, err := vo.ParseClientID(r.Header.Get(api.ClientIDHeader)); err == nil {
			ctx = logging.WithClientID(ctx, clientID)
		}

		w.Header().Set("X-Correlation-ID", corrID.String())

		logging.InfoContext(ctx, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reportPoolStats exports connection pool gauges until ctx is done.
func reportPoolStats(ctx context.Context, ds *postgres.DataStore) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ds.PoolStats()
		}
	}
}

// healthHandler returns basic health status.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

// readyHandler checks if all dependencies are available.
func readyHandler(cfg *config.Config, deps []dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		checks := make(map[string]string, len(deps))
		for _, dep := range deps {
			if err := dep.ping(r.Context()); err != nil {
				logging.WarnContext(r.Context(), "Dependency not ready", "dependency", dep.name, "error", err)
				checks[dep.name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[dep.name] = "ok"
		}

		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status":       state,
			"environment":  cfg.Environment,
			"dependencies": checks,
		})
	}
}
