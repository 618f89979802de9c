package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/watch-market/internal/api/http"
	"github.com/spec-kit/watch-market/internal/api/http/handlers"
	"github.com/spec-kit/watch-market/internal/auth"
	"github.com/spec-kit/watch-market/internal/cache"
	"github.com/spec-kit/watch-market/internal/config"
	"github.com/spec-kit/watch-market/internal/events"
	"github.com/spec-kit/watch-market/internal/notification"
	"github.com/spec-kit/watch-market/internal/observability"
	"github.com/spec-kit/watch-market/internal/persistence"
	"github.com/spec-kit/watch-market/internal/repository"
	"github.com/spec-kit/watch-market/internal/repository/memory"
	"github.com/spec-kit/watch-market/internal/service"
	"github.com/spec-kit/watch-market/internal/worker"
)

type repositories struct {
	users    repository.UserRepository
	listings repository.ListingRepository
	audit    repository.AuditRepository
	reports  repository.ReportRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	repos := buildRepositories(pg)

	dispatcher := events.NewAsyncDispatcher(cfg.Notification.QueueSize, cfg.Notification.Workers, logger)

	sinks, closeSinks := buildSinks(cfg.Notification, repos.users, logger)
	defer closeSinks()
	deliverySink := worker.NewMeteredSink(notification.NewMultiSink(logger, sinks...), metrics)

	var (
		publisher notification.Publisher = notification.DirectPublisher{Sink: deliverySink}
		consumer  *notification.StreamConsumer
	)
	if rdb.Enabled() {
		publisher = notification.NewStreamOutbox(rdb.Client, cfg.Notification.Stream)
		consumer = notification.NewStreamConsumer(rdb.Client, cfg.Notification.Stream, cfg.Notification.Group,
			cfg.Notification.Consumer, cfg.Notification.ClaimInterval(), logger, deliverySink)
	}
	notificationService := service.NewNotificationService(dispatcher, publisher, metrics, logger)
	notifier := worker.StartNotificationWorker(ctx, notificationService, consumer, logger)
	dispatcher.Start()

	lifecycleDeps := service.LifecycleDependencies{
		ListingRepo: repos.listings,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	}
	if rdb.Enabled() {
		if approved := cache.NewApprovedCache(rdb.Client, cfg.Cache.ApprovedTTL()); approved != nil {
			lifecycleDeps.Cache = approved
		}
	}

	authService := service.NewAuthService(cfg.Auth, repos.users, logger)
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		logger.Fatal("failed to bootstrap administrator", zap.Error(err))
	}
	listingService := service.NewListingService(service.ListingDependencies{
		LifecycleDependencies: lifecycleDeps,
		AuditRepo:             repos.audit,
	})
	moderationService := service.NewModerationService(lifecycleDeps)
	reportService := service.NewReportService(service.ReportDependencies{
		LifecycleDependencies: lifecycleDeps,
		ReportRepo:            repos.reports,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    rdb,
		}),
		Users:          handlers.NewUsersHandler(authService),
		Listings:       handlers.NewListingsHandler(listingService, reportService),
		Moderation:     handlers.NewModerationHandler(moderationService, reportService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := dispatcher.Stop(drainCtx); err != nil {
		logger.Warn("event dispatcher did not drain", zap.Error(err))
	}
	notifier.Stop()
}

func buildRepositories(pg *persistence.Postgres) repositories {
	if !pg.Enabled() {
		store := memory.NewStore()
		return repositories{
			users:    store.Users(),
			listings: store.Listings(),
			audit:    store.Audit(),
			reports:  store.Reports(),
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		users:    repository.NewUserRepository(pool),
		listings: repository.NewListingRepository(pool),
		audit:    repository.NewAuditRepository(pool),
		reports:  repository.NewReportRepository(pool),
	}
}

// buildSinks assembles the delivery sinks enabled by configuration. The log sink is always on.
func buildSinks(cfg config.NotificationConfig, users repository.UserRepository, logger *zap.Logger) ([]notification.Sink, func()) {
	sinks := []notification.Sink{notification.NewLogSink(logger)}
	closers := []func(){}

	if cfg.NATSURL != "" {
		natsSink, err := notification.NewNATSSink(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Warn("nats unavailable; notifications will not be published to nats", zap.Error(err))
		} else {
			sinks = append(sinks, natsSink)
			closers = append(closers, natsSink.Close)
		}
	}
	if cfg.SMTPHost != "" {
		sinks = append(sinks, notification.NewEmailSink(cfg, users))
	}

	return sinks, func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
