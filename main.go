package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"repost-bot/bot"
	"repost-bot/cache"
	"repost-bot/command"
	"repost-bot/config"
	"repost-bot/database"
	"repost-bot/fetch"
	"repost-bot/grpc"
	"repost-bot/handlers"
	"repost-bot/hashindex"
	"repost-bot/links"
	"repost-bot/observability"
	"repost-bot/processor"
	"repost-bot/reconcile"
	"repost-bot/reply"
	"repost-bot/utils"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		boot := utils.NewLogger("info", os.Stderr)
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := utils.NewLogger(cfg.Bot.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(ctx, cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	metadata := cache.New(cache.WithObserver(func(kind cache.Kind, wrote bool) {
		result := "cached"
		if wrote {
			result = "written"
		}
		observability.MetadataWrites.WithLabelValues(kind.String(), result).Inc()
	}))

	b, err := bot.NewBot(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error creating bot")
	}
	session := b.Session

	hook := utils.NewAdminHook(session, cfg.Bot.AdminChannelID)
	logger = logger.Hook(hook)
	go hook.Deliver(ctx)

	extractor, err := links.NewExtractor(cfg.Links.Ignored)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid ignored link pattern")
	}

	g, gctx := errgroup.WithContext(ctx)

	// The reconciliation manager needs the processor, which needs the
	// commands, so the reconcile command resolves the manager late.
	var manager *reconcile.Manager
	commands, err := command.New(db, session, utils.NewAuth(cfg.Commands), cfg.Bot.CommandPrefix, logger,
		command.WithReadable(func(channelID string) bool {
			return session.State.User != nil && utils.CanReadHistory(session.State, session.State.User.ID, channelID)
		}),
		command.WithWaker(command.WakerFunc(func(server uint64) bool {
			return manager != nil && manager.Wake(server)
		})),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid command prefix")
	}

	pipeline := processor.New(processor.Deps{
		Store:            db,
		Cache:            metadata,
		Images:           hashindex.New(db, logger),
		Links:            extractor,
		Fetcher:          fetch.New(cfg.Images.FetchTimeout, cfg.Images.MaxBytes),
		Directory:        session.State,
		Commands:         commands,
		IgnoredProviders: cfg.Images.IgnoredProviders,
	}, logger)

	deps := handlers.Deps{
		Store:    db,
		Cache:    metadata,
		Pipeline: pipeline,
		Sender:   reply.NewSender(session, db, logger),
		Commands: commands,
	}
	if cfg.Reconcile.Enabled {
		manager = reconcile.NewManager(reconcile.NewScheduler(db, session, pipeline, cfg.Reconcile, logger))
		deps.Loops = manager
	}

	if cfg.GRPC.HealthAddr != "" {
		health := grpc.NewHealthServer(cfg.GRPC.HealthAddr, logger)
		deps.Connected = health.SetConnected
		g.Go(func() error { return health.Start(gctx) })
	}
	if cfg.Metrics.Addr != "" {
		srv := observability.NewServer(db, cfg.Metrics.Addr, &logger)
		g.Go(func() error { return srv.Start(gctx) })
	}

	h := handlers.New(gctx, deps, logger)

	maintenance, err := bot.NewScheduler(cfg.Maintenance.Schedule, db, metadata, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid maintenance schedule")
	}
	maintenance.Start()

	g.Go(func() error {
		return b.Run(gctx, func(b *bot.Bot) { handlers.Register(b, h) })
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Shutting down after error")
	}
	maintenance.Stop()
	if manager != nil {
		manager.Wait()
	}
	logger.Info().Msg("Bot stopped.")
}
