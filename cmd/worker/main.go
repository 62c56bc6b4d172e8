package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qline/queue-api/internal/repository/postgres"
	sessionService "github.com/qline/queue-api/internal/service/session"
	"github.com/qline/queue-api/internal/worker"
	"github.com/qline/queue-api/pkg/logger"
	"github.com/qline/queue-api/pkg/metrics"
)

// workerConfig is the flat environment surface for the standalone sweep
// deployment. The API binary reads the full YAML config instead.
type workerConfig struct {
	DatabaseURL      string        `envconfig:"DATABASE_URL" required:"true"`
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"15m"`
	SessionWindow    time.Duration `envconfig:"SESSION_WINDOW" default:"24h"`
	SessionCacheTTL  time.Duration `envconfig:"SESSION_CACHE_TTL" default:"30s"`
	HealthListenAddr string        `envconfig:"HEALTH_LISTEN_ADDR" default:":8081"`
	MetricsNamespace string        `envconfig:"METRICS_NAMESPACE" default:"queue_worker"`
}

func setupHealthCheck(addr string, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker config")
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLogger := &logger.Logger{ZL: log.Logger}

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	baseRepo := postgres.NewBaseRepository(db)
	sessionRepo := postgres.NewSessionRepository(baseRepo)
	sessionSvc := sessionService.NewService(sessionRepo, cfg.SessionWindow, cfg.SessionCacheTTL, appLogger)

	cleanup := worker.NewSessionCleanupWorker(
		sessionSvc,
		worker.SessionCleanupConfig{Interval: cfg.SweepInterval},
		appLogger,
		metrics.New(cfg.MetricsNamespace),
	)

	setupHealthCheck(cfg.HealthListenAddr, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.ZL.Info().Msg("shutting down...")
		cancel()
	}()

	cleanup.Start(ctx)
}
