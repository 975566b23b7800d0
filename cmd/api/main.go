package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/polling-service/internal/api/http"
	"github.com/spec-kit/polling-service/internal/api/http/handlers"
	"github.com/spec-kit/polling-service/internal/api/ws"
	"github.com/spec-kit/polling-service/internal/config"
	"github.com/spec-kit/polling-service/internal/events"
	"github.com/spec-kit/polling-service/internal/observability"
	"github.com/spec-kit/polling-service/internal/persistence"
	"github.com/spec-kit/polling-service/internal/repository"
	"github.com/spec-kit/polling-service/internal/service"
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

	pool := pg.PoolHandle()
	pollRepo := repository.NewPollRepository(pool)
	voteRepo := repository.NewVoteRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	registry := service.NewParticipantRegistry()
	chatService := service.NewChatService(cfg.Chat, nil)

	pollService := service.NewPollService(service.PollDependencies{
		PollRepo:   pollRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	defer pollService.Shutdown()

	voteService := service.NewVoteService(service.VoteDependencies{
		VoteRepo:   voteRepo,
		PollRepo:   pollRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	hub := ws.NewHub(logger, metrics)
	defer hub.CloseAll()

	coordinator := ws.NewCoordinator(ws.CoordinatorDependencies{
		Hub:        hub,
		PollSvc:    pollService,
		VoteSvc:    voteService,
		ChatSvc:    chatService,
		Registry:   registry,
		Dispatcher: dispatcher,
		RateLimit:  cfg.RateLimit,
		LobbyID:    cfg.Lobby.ID,
		Logger:     logger,
	})

	// Rebuild expiry timers for polls that were ACTIVE when the process
	// last stopped; polls that expired during the downtime complete now.
	if err := pollService.RecoverActivePolls(ctx); err != nil {
		logger.Error("startup poll recovery failed", zap.Error(err))
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(pg, redis)
	pollsHandler := handlers.NewPollsHandler(pollService, voteService, registry, cfg.Lobby.ID)
	votesHandler := handlers.NewVotesHandler(voteService)
	rateLimiter := httptransport.NewRateLimiter(redis, logger)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      healthHandler,
		Polls:       pollsHandler,
		Votes:       votesHandler,
		Coordinator: coordinator,
		RateLimiter: rateLimiter,
		RateLimits:  cfg.RateLimit,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
