package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"telegram-legal-assistant/internal/application"
	"telegram-legal-assistant/internal/config"
	"telegram-legal-assistant/internal/domain/ports/adapter"
	aiAdapters "telegram-legal-assistant/internal/infra/adapters/ai"
	payAdapters "telegram-legal-assistant/internal/infra/adapters/payment"
	"telegram-legal-assistant/internal/infra/adapters/render"
	tele "telegram-legal-assistant/internal/infra/adapters/telegram"
	mongodb "telegram-legal-assistant/internal/infra/db/mongo"
	pg "telegram-legal-assistant/internal/infra/db/postgres"
	"telegram-legal-assistant/internal/infra/logging"
	"telegram-legal-assistant/internal/infra/metrics"
	red "telegram-legal-assistant/internal/infra/redis"
	"telegram-legal-assistant/internal/infra/sched"
	"telegram-legal-assistant/internal/infra/web"
	"telegram-legal-assistant/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies, noop bot)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Mongo (user documents) ----
	mongoClient, err := mongodb.NewClient(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() { _ = mongoClient.Close(context.Background()) }()
	userRepo := mongodb.NewUserRepo(mongoClient, cfg.Mongo.Collection, logger)

	// ---- Postgres (durable pending payments) ----
	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	pendingRepo := pg.NewPendingPaymentRepo(pool)

	// ---- Redis (conversation state, rate limits) ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = redisClient.Close() }()
	stateRepo := red.NewStateRepo(redisClient, cfg.Redis.StateTTL)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Gateway and AI adapters ----
	gateway, err := payAdapters.NewYooKassaGateway(cfg.YooKassa, cfg.Subscription)
	if err != nil {
		logger.Fatal().Err(err).Msg("yookassa gateway init failed")
	}
	ai, err := aiAdapters.NewOpenAIAdapter(cfg.AI)
	if err != nil {
		logger.Fatal().Err(err).Msg("openai adapter init failed")
	}
	renderer := render.NewHTMLRenderer()

	// ---- Telegram ----
	// The bot is both the transport for handlers and the notifier for the
	// monitor and the sweep, so it is built before the use cases.
	var bot adapter.TelegramBotAdapter
	var realBot *tele.RealTelegramBotAdapter

	userUC := usecase.NewUserUseCase(userRepo, logger)
	subUC := usecase.NewSubscriptionUseCase(userRepo, nil, cfg.Subscription.DurationDays, cfg.Subscription.WarnBeforeDays, logger)
	chatUC := usecase.NewChatUseCase(ai, userRepo, logger)
	docUC := usecase.NewDocumentUseCase(ai, renderer, userRepo, logger)

	monitor := usecase.NewPaymentMonitor(gateway, subUC, nil, pendingRepo, cfg.Monitor, logger)
	payUC := usecase.NewPaymentUseCase(gateway, monitor, userRepo, logger)

	facade := application.NewBotFacade(userUC, subUC, payUC, chatUC, docUC)

	if cfg.Runtime.Dev && cfg.Bot.Token == "dev" {
		bot = tele.NewNoopBotAdapter(logger)
	} else {
		realBot, err = tele.NewRealTelegramBotAdapter(&cfg.Bot, facade, stateRepo, rateLimiter, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram init failed")
		}
		bot = realBot
	}
	subUC.SetNotifier(bot)
	monitor.SetNotifier(bot)

	// ---- Payment monitor ----
	if err := monitor.Restore(ctx); err != nil {
		logger.Fatal().Err(err).Msg("restore pending payments failed")
	}
	go func() {
		if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("payment monitor exited")
		}
	}()

	// ---- Scheduler ----
	scheduler := sched.New(monitor, subUC, cfg.Scheduler, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start failed")
	}
	defer scheduler.Stop()

	// ---- Telegram polling ----
	if realBot != nil {
		go func() {
			if err := realBot.StartPolling(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- Ops / admin server ----
	server := web.NewServer(monitor, subUC, cfg.Admin, cfg.Runtime.Dev, logger)
	go func() {
		if err := server.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("web server stopped")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	monitor.Stop()
	cancel()
}
