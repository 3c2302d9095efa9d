package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/paddos/internal/amenity"
	"github.com/UnknownOlympus/paddos/internal/api"
	"github.com/UnknownOlympus/paddos/internal/config"
	"github.com/UnknownOlympus/paddos/internal/geolocation"
	"github.com/UnknownOlympus/paddos/internal/metrics"
	"github.com/UnknownOlympus/paddos/internal/monitor"
	"github.com/UnknownOlympus/paddos/internal/repository"
	"github.com/UnknownOlympus/paddos/internal/safety"
	"github.com/UnknownOlympus/paddos/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const shutdownTimeout = 10 * time.Second

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)
	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// The database only carries baseline overrides, so the service runs without it.
	var repo repository.Interface
	if cfg.Database.Enabled() {
		dtb, err := repository.NewDatabase(
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer dtb.Close()

		repo = repository.NewRepository(dtb, logger)
	}
	baselines := service.LoadBaselines(ctx, repo, logger)

	amenities := amenity.NewClient(cfg.Overpass.URL, cfg.Overpass.Parallel, cfg.Overpass.Timeout, logger, appMetrics)
	aggregator := safety.NewAggregator(amenities, baselines, logger, appMetrics)
	mon := monitor.NewMonitor(aggregator, cfg.Monitor.Interval, cfg.Monitor.RetryDelay, logger, appMetrics)

	// Create the geolocation chain using factory pattern based on configuration.
	providerTypes := make([]geolocation.ProviderType, 0, len(cfg.Geolocation.Providers))
	for _, name := range cfg.Geolocation.Providers {
		providerTypes = append(providerTypes, geolocation.ProviderType(name))
	}
	locator, err := geolocation.NewChainFromTypes(providerTypes, geolocation.ProviderConfig{
		APIKey:    cfg.Geolocation.APIKey,
		RateLimit: cfg.Geolocation.RateLimit,
		Timeout:   cfg.Geolocation.Timeout,
		Logger:    logger,
	}, logger, appMetrics)
	if err != nil {
		log.Fatalf("Failed to create geolocation providers: %v", err)
	}

	logger.InfoContext(ctx, "Geolocation providers initialized", "providers", cfg.Geolocation.Providers)

	safetyService := service.NewSafetyService(logger, aggregator, mon, locator)
	router := api.NewRouter(api.NewHandler(safetyService, logger), logger)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.", "port", cfg.HTTPPort)

	// Start the monitoring server in a goroutine to allow main to listen for signals.
	go startMonitoringServer(ctx, logger, reg, repo, cfg.HealthPort)

	go func() {
		if errServe := apiServer.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "API server failed", "error", errServe)
			stop()
		}
	}()

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = apiServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Failed to shut down API server", "error", err)
	}
	safetyService.Close()

	// Log graceful shutdown completion.
	logger.InfoContext(shutdownCtx, "Application stopped gracefully.")
}

// startMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// It listens on the specified port and logs the server's status and any errors encountered.
//
// Parameters:
// - ctx: A context.Context for managing cancellation and timeouts.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - repo: The baseline repository used for the database ping, nil when no database is configured.
// - port: The port number on which the server will listen.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	repo repository.Interface,
	port int,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(ctx, log, repo))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}

// healthHandler answers 200 OK, or 503 when the configured database does not respond to a ping.
func healthHandler(ctx context.Context, log *slog.Logger, repo repository.Interface) http.HandlerFunc {
	return func(writer http.ResponseWriter, _ *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if repo != nil {
			if err := repo.Ping(ctx); err != nil {
				log.WarnContext(ctx, "Database ping failed", "error", err)
				status, body = http.StatusServiceUnavailable, "DB ping failed"
			}
		}
		writer.WriteHeader(status)
		_, err := writer.Write([]byte(body))
		if err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
