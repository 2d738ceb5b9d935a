package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mita-backend/internal/config"
	"mita-backend/internal/database"
	"mita-backend/internal/drift"
	"mita-backend/internal/handlers"
	"mita-backend/internal/messaging"
	"mita-backend/internal/middleware"
	"mita-backend/internal/notifications"
	"mita-backend/internal/repositories"
	"mita-backend/internal/services"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

const (
	shutdownTimeout      = 30 * time.Second
	tokenCleanupInterval = time.Hour
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	metrics := services.NewPrometheusMetrics()

	userRepo := repositories.NewUserRepository(db.DB)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db.DB)
	blacklistedTokenRepo := repositories.NewBlacklistedTokenRepository(db.DB)
	calendarRepo := repositories.NewCalendarRepository(db.DB)
	transactionRepo := repositories.NewTransactionRepository(db.DB)
	referralRepo := repositories.NewReferralRepository(db.DB)
	pushTokenRepo := repositories.NewPushTokenRepository(db.DB)
	notificationLogRepo := repositories.NewNotificationLogRepository(db.DB)

	var publisher services.Publisher
	var broker *messaging.Client
	if cfg.Notifications.Enabled() {
		broker, err = messaging.NewClient(cfg.Notifications.AMQPURL, cfg.Notifications.Exchange, cfg.Notifications.Queue)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer broker.Close()
		publisher = broker
		logger.Info("notification queue connected", "queue", cfg.Notifications.Queue)
	} else {
		logger.Info("AMQP_URL not set, notifications are delivered in-process")
	}

	senders, err := buildSenders(ctx, cfg.Notifications, logger)
	if err != nil {
		return err
	}

	driftStore, closeDrift, err := buildDriftStore(ctx, cfg.Drift, logger)
	if err != nil {
		return err
	}
	defer closeDrift()

	tokenService := services.NewTokenService(&cfg.JWT)
	passwordService := services.NewPasswordService(services.PasswordPolicyFromConfig(cfg.Security), userRepo, refreshTokenRepo)
	notificationService := services.NewNotificationService(
		pushTokenRepo,
		notificationLogRepo,
		userRepo,
		senders,
		publisher,
		services.CircuitBreakerConfig{
			MaxFailures:       cfg.Notifications.BreakerThreshold,
			ResetTimeout:      cfg.Notifications.BreakerTimeout,
			HalfOpenSuccesses: 1,
		},
		metrics,
	)

	var notifier services.NotificationServiceInterface
	if cfg.Analytics.NotifySevereAnomaly {
		notifier = notificationService
	}

	authOpts := []services.AuthOption{services.WithLockoutThreshold(cfg.Security.MaxFailedAttempts)}
	if cfg.Security.GoogleClientID != "" {
		verifier, err := services.NewGoogleVerifier(ctx, cfg.Security.GoogleClientID)
		if err != nil {
			return fmt.Errorf("initialize google sign-in: %w", err)
		}
		authOpts = append(authOpts, services.WithGoogleVerifier(verifier))
		logger.Info("google sign-in enabled")
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set, google sign-in disabled")
	}
	authService := services.NewAuthService(userRepo, refreshTokenRepo, blacklistedTokenRepo, passwordService, tokenService, metrics, logger, authOpts...)

	svc := serviceSet{
		auth:         authService,
		token:        tokenService,
		password:     passwordService,
		user:         services.NewUserService(userRepo),
		calendar:     services.NewCalendarService(calendarRepo, metrics),
		transaction:  services.NewTransactionService(transactionRepo, metrics),
		analytics:    services.NewAnalyticsService(calendarRepo, transactionRepo, notifier, cfg.Analytics, metrics),
		drift:        services.NewDriftService(driftStore),
		referral:     services.NewReferralService(referralRepo, userRepo, transactionRepo),
		notification: notificationService,
	}

	deps := []handlers.Dependency{handlers.DatabaseDependency(db.DB)}
	if broker != nil {
		deps = append(deps, handlers.Dependency{Name: "amqp", Check: broker.Ping})
	}

	limiter := middleware.NewRateLimiter(cfg.Security.RateLimitPerSecond, cfg.Security.RateLimitBurst)
	e := newServer(cfg, svc, blacklistedTokenRepo, limiter, deps...)

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        e,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", srv.Addr, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return limiter.Run(gctx)
	})

	g.Go(func() error {
		return cleanupExpiredTokens(gctx, blacklistedTokenRepo, refreshTokenRepo, logger)
	})

	if broker != nil && cfg.Notifications.WorkerEnabled {
		g.Go(func() error {
			logger.Info("notification worker started", "queue", cfg.Notifications.Queue)
			err := broker.Consume(gctx, notificationService.Deliver)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("notification worker: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func buildSenders(ctx context.Context, cfg config.NotificationsConfig, logger *slog.Logger) ([]notifications.Sender, error) {
	var senders []notifications.Sender

	if cfg.FCMProjectID != "" {
		fcm, err := notifications.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("initialize FCM: %w", err)
		}
		senders = append(senders, fcm)
		logger.Info("push delivery enabled", "project_id", cfg.FCMProjectID)
	} else {
		logger.Warn("FCM_PROJECT_ID not set, push notifications disabled")
	}

	if cfg.SMTPHost != "" {
		smtp, err := notifications.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		if err != nil {
			return nil, fmt.Errorf("initialize SMTP: %w", err)
		}
		senders = append(senders, smtp)
		logger.Info("email delivery enabled", "relay", cfg.SMTPAddr())
	} else {
		logger.Warn("SMTP_HOST not set, email notifications disabled")
	}

	return senders, nil
}

func buildDriftStore(ctx context.Context, cfg config.DriftConfig, logger *slog.Logger) (drift.Store, func(), error) {
	if !cfg.Enabled() {
		logger.Warn("FIRESTORE_PROJECT_ID not set, drift log kept in memory")
		return drift.NewMemoryStore(), func() {}, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize firestore: %w", err)
	}
	logger.Info("drift log backed by firestore", "project_id", cfg.ProjectID, "collection", cfg.Collection)

	return drift.NewFirestoreStore(client, cfg.Collection), func() { _ = client.Close() }, nil
}

func cleanupExpiredTokens(
	ctx context.Context,
	blacklisted repositories.BlacklistedTokenRepositoryInterface,
	refresh repositories.RefreshTokenRepositoryInterface,
	logger *slog.Logger,
) error {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, err := blacklisted.DeleteExpired(); err != nil {
				logger.Error("blacklist cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("removed expired blacklisted tokens", "count", n)
			}
			if n, err := refresh.DeleteExpired(); err != nil {
				logger.Error("refresh token cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("removed expired refresh tokens", "count", n)
			}
		}
	}
}
