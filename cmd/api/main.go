package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/qline/queue-api/internal/config"
	authHandler "github.com/qline/queue-api/internal/handler/auth"
	"github.com/qline/queue-api/internal/handler/health"
	notificationHandler "github.com/qline/queue-api/internal/handler/notification"
	organizationHandler "github.com/qline/queue-api/internal/handler/organization"
	ticketHandler "github.com/qline/queue-api/internal/handler/ticket"
	"github.com/qline/queue-api/internal/email"
	"github.com/qline/queue-api/internal/middleware"
	"github.com/qline/queue-api/internal/repository/postgres"
	"github.com/qline/queue-api/internal/router"
	authService "github.com/qline/queue-api/internal/service/auth"
	notifierService "github.com/qline/queue-api/internal/service/notifier"
	organizationService "github.com/qline/queue-api/internal/service/organization"
	preferenceService "github.com/qline/queue-api/internal/service/preference"
	sessionService "github.com/qline/queue-api/internal/service/session"
	ticketService "github.com/qline/queue-api/internal/service/ticket"
	"github.com/qline/queue-api/internal/worker"
	"github.com/qline/queue-api/pkg/auth"
	"github.com/qline/queue-api/pkg/logger"
	messagingRedis "github.com/qline/queue-api/pkg/messaging/redis"
	"github.com/qline/queue-api/pkg/metrics"
	"github.com/qline/queue-api/pkg/push"
	"github.com/qline/queue-api/pkg/security"
	"github.com/qline/queue-api/pkg/whatsapp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := messagingRedis.NewRedisBroker(messagingRedis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.New("queue_api")

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	orgRepo := postgres.NewOrganizationRepository(baseRepo)
	branchRepo := postgres.NewBranchRepository(baseRepo)
	deptRepo := postgres.NewDepartmentRepository(baseRepo)
	ticketRepo := postgres.NewTicketRepository(baseRepo)
	userRepo := postgres.NewUserRepository(baseRepo)
	prefRepo := postgres.NewPreferenceRepository(baseRepo)
	subRepo := postgres.NewSubscriptionRepository(baseRepo)
	sessionRepo := postgres.NewSessionRepository(baseRepo)
	logRepo := postgres.NewNotificationLogRepository(baseRepo)

	// Outbound transports
	pushTransport := push.NewClient(push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subject:         cfg.Push.Subject,
		Timeout:         time.Duration(cfg.Push.TimeoutSeconds) * time.Second,
	})
	waTransport := whatsapp.NewClient(whatsapp.Config{
		BaseURL:       cfg.WhatsApp.BaseURL,
		Token:         cfg.WhatsApp.Token,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		Timeout:       time.Duration(cfg.WhatsApp.TimeoutSeconds) * time.Second,
	})
	emailSvc := email.NewSMTPService(cfg.SMTP)

	// Services
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})
	authSvc := authService.NewService(userRepo, jwtSvc, security.NewBcryptHasher(0), emailSvc)
	orgSvc := organizationService.NewService(orgRepo, branchRepo, deptRepo)
	sessionSvc := sessionService.NewService(sessionRepo, cfg.Session.Window(), cfg.Session.CacheTTL(), appLogger)
	prefSvc := preferenceService.NewService(prefRepo, subRepo, appLogger)
	notifierSvc := notifierService.NewService(prefRepo, subRepo, sessionSvc, logRepo, pushTransport, waTransport, appLogger, m)
	ticketSvc := ticketService.NewService(ticketRepo, deptRepo, notifierSvc, broker, appLogger, m, cfg.Notifier.Position())

	// Middleware and handlers
	authMW := middleware.NewAuthMiddleware(authSvc)
	healthH := health.NewHandler(db)
	authH := authHandler.NewHandler(authSvc)
	orgH := organizationHandler.NewHandler(orgSvc)
	ticketH := ticketHandler.NewHandler(ticketSvc)
	notificationH := notificationHandler.NewHandler(prefSvc, sessionSvc, waTransport, logRepo, appLogger, cfg.WhatsApp.VerifyToken)

	rateLimit := cfg.Server.RateLimit
	if rateLimit <= 0 {
		rateLimit = 100
	}
	rateBurst := cfg.Server.RateBurst
	if rateBurst <= 0 {
		rateBurst = 200
	}

	r := router.NewRouter(authMW, healthH, authH, orgH, ticketH, notificationH, router.Config{
		RateLimit:     rate.Limit(rateLimit),
		RateBurst:     rateBurst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "queue_api_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The API also runs the sweep so expired windows are reconciled even
	// without the dedicated worker deployment.
	cleanup := worker.NewSessionCleanupWorker(sessionSvc, worker.SessionCleanupConfig{}, appLogger, m)
	go cleanup.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
