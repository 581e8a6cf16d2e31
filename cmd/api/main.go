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

	httptransport "github.com/spec-kit/tracker-central/internal/api/http"
	"github.com/spec-kit/tracker-central/internal/api/http/handlers"
	"github.com/spec-kit/tracker-central/internal/auth"
	"github.com/spec-kit/tracker-central/internal/cache"
	"github.com/spec-kit/tracker-central/internal/config"
	"github.com/spec-kit/tracker-central/internal/events"
	"github.com/spec-kit/tracker-central/internal/form"
	"github.com/spec-kit/tracker-central/internal/freshdesk"
	"github.com/spec-kit/tracker-central/internal/observability"
	"github.com/spec-kit/tracker-central/internal/persistence"
	"github.com/spec-kit/tracker-central/internal/repository"
	"github.com/spec-kit/tracker-central/internal/service"
	"github.com/spec-kit/tracker-central/internal/templates"
	"github.com/spec-kit/tracker-central/internal/worker"
	"github.com/spec-kit/tracker-central/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	registry, err := templates.Load(templates.WithResourceOptions(cfg.Freshdesk.ResourceOptions))
	if err != nil {
		logger.Fatal("failed to load templates", zap.Error(err))
	}
	logger.Info("templates loaded", zap.Int("count", len(registry.List())))

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		draftRepo repository.DraftRepository
		linkRepo  repository.TrackerLinkRepository
	)
	if pg.Enabled() {
		draftRepo = repository.NewDraftRepository(pg.Pool)
		linkRepo = repository.NewTrackerLinkRepository(pg.Pool)
	} else {
		draftRepo = repository.NewMemoryDraftRepository()
		linkRepo = repository.NewMemoryTrackerLinkRepository()
	}

	// helpdesk stays a nil interface while unconfigured so services answer
	// with a configuration error.
	var (
		helpdesk  service.Helpdesk
		companies service.CompanyLookup
	)
	if cfg.Freshdesk.Configured() {
		client := freshdesk.NewClient(freshdesk.Config{
			Subdomain: cfg.Freshdesk.Subdomain,
			APIKey:    cfg.Freshdesk.APIKey,
			Timeout:   cfg.Freshdesk.Timeout(),
		}, logger).WithObserver(metrics.ObserveUpstream)
		helpdesk = client
		companies = cache.NewCompanyCache(redis.Client, client, cfg.Tracker.CompanyCacheTTL(), logger, metrics)
	} else {
		logger.Warn("FRESHDESK_SUBDOMAIN not provided; tracker creation is disabled")
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	store := form.NewStore(cfg.Tracker.SessionTTL())

	sessionService := service.NewSessionService(service.SessionDependencies{
		Registry:   registry,
		Store:      store,
		Loader:     service.NewTicketContextLoader(helpdesk, companies, logger),
		Drafts:     draftRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	trackerService := service.NewTrackerService(service.TrackerDependencies{
		Registry:     registry,
		Sessions:     sessionService,
		Helpdesk:     helpdesk,
		Links:        linkRepo,
		Deduper:      cache.NewDeduper(redis.Client, cfg.Tracker.SubmissionDedupeWindow()),
		DedupeWindow: cfg.Tracker.SubmissionDedupeWindow(),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	associationService := service.NewAssociationService(helpdesk, companies, cfg.Tracker.CompanyLookupConcurrency, logger)
	draftService := service.NewDraftService(service.DraftDependencies{
		Drafts:     draftRepo,
		Registry:   registry,
		Sessions:   sessionService,
		Dispatcher: dispatcher,
		Limit:      cfg.Tracker.DraftLimit,
		Logger:     logger,
	})

	service.NewNotificationService(dispatcher, helpdesk, registry, logger).RegisterHandlers()

	scheduler, err := worker.NewScheduler(worker.ScheduleConfig{
		DraftCleanup: cfg.Tracker.DraftCleanupCron,
		SessionSweep: cfg.Tracker.SessionSweepCron,
	}, draftService, sessionService, logger)
	if err != nil {
		logger.Fatal("failed to schedule jobs", zap.Error(err))
	}
	scheduler.Start()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}, cfg.Freshdesk.Configured()),
		Templates:          handlers.NewTemplatesHandler(registry),
		Sessions:           handlers.NewSessionsHandler(sessionService),
		Trackers:           handlers.NewTrackersHandler(trackerService, associationService),
		Drafts:             handlers.NewDraftsHandler(draftService),
		AuthMiddleware:     auth.NewAuthMiddleware(tokens),
		Metrics:            metrics,
		HelpdeskConfigured: cfg.Freshdesk.Configured(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	scheduler.Stop(shutdownCtx)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
