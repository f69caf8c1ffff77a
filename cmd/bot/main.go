package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/guild-ticket-bot/internal/api/http"
	"github.com/spec-kit/guild-ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/guild-ticket-bot/internal/auth"
	"github.com/spec-kit/guild-ticket-bot/internal/bot"
	"github.com/spec-kit/guild-ticket-bot/internal/config"
	"github.com/spec-kit/guild-ticket-bot/internal/events"
	"github.com/spec-kit/guild-ticket-bot/internal/observability"
	"github.com/spec-kit/guild-ticket-bot/internal/persistence"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/internal/repository"
	"github.com/spec-kit/guild-ticket-bot/internal/service"
	"github.com/spec-kit/guild-ticket-bot/internal/worker"
)

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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	// Without postgres the bot runs on the in-memory config store; without
	// redis the pgx store serves reads directly.
	var configRepo repository.TicketConfigRepository
	if pool := pg.PoolHandle(); pool != nil {
		configRepo = repository.NewTicketConfigRepository(pool)
		configRepo = repository.NewConfigCache(configRepo, redis.Client, logger)
	} else {
		configRepo = repository.NewMemoryConfigRepository()
	}

	client := platform.NewRESTClient(platform.RESTConfig{
		BaseURL:  cfg.Platform.APIBaseURL,
		BotToken: cfg.Platform.BotToken,
		Timeout:  cfg.Platform.Timeout(),
	}, logger)

	registry := repository.NewTicketRegistry()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	ticketService := service.NewTicketService(service.TicketDependencies{
		ConfigRepo:      configRepo,
		Registry:        registry,
		Platform:        client,
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
		BotUserID:       cfg.Platform.BotUserID,
		DeleteGrace:     cfg.Ticket.DeleteGrace(),
		HistoryPageSize: cfg.Ticket.HistoryPageSize,
	})
	setupService := service.NewSetupService(service.SetupDependencies{
		ConfigRepo: configRepo,
		Platform:   client,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	worker.NewAuditWorker(configRepo, client, logger).Register(dispatcher)

	sweeper := worker.NewRetentionSweeper(ticketService, registry, configRepo, cfg.Platform.BotUserID, logger)
	if err := sweeper.Start(cfg.Ticket.RetentionCronSpec); err != nil {
		logger.Fatal("failed to schedule retention sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	router := bot.NewRouter(ticketService, client, logger)
	gateway := platform.NewGateway(platform.GatewayConfig{
		URL:      cfg.Platform.GatewayURL,
		BotToken: cfg.Platform.BotToken,
	}, client, router.Handle, logger)
	go gateway.Run(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(func() bool {
			return pg.PoolHandle() == nil || pg.PoolHandle().Ping(ctx) == nil
		}),
		Auth:           handlers.NewAuthHandler(cfg.Auth, tokens),
		Tickets:        handlers.NewTicketsHandler(ticketService, client),
		Setup:          handlers.NewSetupHandler(setupService, client),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
