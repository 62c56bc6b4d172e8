package worker

import (
	"context"
	"time"

	sessionService "github.com/qline/queue-api/internal/service/session"
	"github.com/qline/queue-api/pkg/logger"
	"github.com/qline/queue-api/pkg/metrics"
)

type SessionCleanupConfig struct {
	Interval time.Duration
}

// SessionCleanupWorker periodically deactivates expired WhatsApp session
// rows. Liveness checks already treat expired rows as closed, so the sweep
// only reconciles stored state and can run at any cadence.
type SessionCleanupWorker struct {
	sessions sessionService.Service
	config   SessionCleanupConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewSessionCleanupWorker(
	sessions sessionService.Service,
	config SessionCleanupConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *SessionCleanupWorker {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	return &SessionCleanupWorker{
		sessions: sessions,
		config:   config,
		logger:   log,
		metrics:  m,
	}
}

func (w *SessionCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.logger.Info("starting session cleanup worker", "interval", w.config.Interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down session cleanup worker")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SessionCleanupWorker) sweep(ctx context.Context) {
	start := time.Now()

	count, err := w.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		w.logger.Error(err, "session sweep failed")
		return
	}

	if w.metrics != nil {
		w.metrics.SweepRuns.Inc()
		w.metrics.SweepLatency.Observe(time.Since(start).Seconds())
		w.metrics.SessionsExpired.Add(float64(count))
	}
}
