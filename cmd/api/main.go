package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/codecache-ai/codecache/internal/api"
	"github.com/codecache-ai/codecache/internal/audit"
	"github.com/codecache-ai/codecache/internal/auth"
	"github.com/codecache-ai/codecache/internal/chat"
	"github.com/codecache-ai/codecache/internal/config"
	"github.com/codecache-ai/codecache/internal/conversation"
	"github.com/codecache-ai/codecache/internal/database"
	"github.com/codecache-ai/codecache/internal/llm"
	"github.com/codecache-ai/codecache/internal/middleware"
	inats "github.com/codecache-ai/codecache/internal/nats"
	"github.com/codecache-ai/codecache/internal/orchestrator"
	iredis "github.com/codecache-ai/codecache/internal/redis"
	"github.com/codecache-ai/codecache/internal/server"
	"github.com/codecache-ai/codecache/internal/snippets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		return err
	}
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// NATS (optional)
	var (
		natsClient *inats.Client
		publisher  *inats.Publisher
	)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			return err
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
	}

	// Turn pipeline
	injector := orchestrator.NewInjector(snippets.NewRepository(pool), cfg.Chat.SnippetLimit)
	model := llm.NewClient(cfg.Model)

	var events orchestrator.EventPublisher
	if publisher != nil {
		events = publisher
	}
	orch := orchestrator.NewOrchestrator(conversation.NewRepository(pool), injector, model, events)

	// HTTP
	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.Issuer)
	auditRepo := audit.NewRepository(pool)
	chatHandler := chat.NewHandler(orch)
	auditHandler := audit.NewHandler(auditRepo)
	limiter := middleware.NewRateLimiter(redisClient, "ratelimit:turn:",
		cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec,
		func(r *http.Request) string { return auth.UserIDFromContext(r.Context()) })

	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
	}, api.HandlerSet{
		PostTurn:          chatHandler.PostTurn,
		ListConversations: chatHandler.List,
		GetConversation:   chatHandler.Get,
		ListAuditLogs:     auditHandler.List,
		AuthMiddleware:    auth.Middleware(jwtManager),
		TurnRateLimiter:   limiter.Middleware,
	})

	g, gctx := errgroup.WithContext(ctx)

	srv := server.New(cfg.Server, cfg.Model.Timeout, router)
	g.Go(func() error { return srv.Run(gctx) })

	if natsClient != nil {
		consumerMgr := inats.NewConsumerManager(natsClient.JetStream())

		turnConsumer := orchestrator.NewConsumer(orch, publisher, consumerMgr, cfg.Model.Timeout*2)
		g.Go(func() error { return turnConsumer.Start(gctx) })

		auditConsumer := audit.NewConsumer(auditRepo, consumerMgr)
		g.Go(func() error { return auditConsumer.Start(gctx) })
	}

	return g.Wait()
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler).With("service", "codecache-api"))
}
