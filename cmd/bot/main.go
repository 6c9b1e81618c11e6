package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olushola/classroom-bot/internal/app"
	"github.com/olushola/classroom-bot/internal/bot/handlers"
	"github.com/olushola/classroom-bot/internal/config"
	"github.com/olushola/classroom-bot/internal/db"
	"github.com/olushola/classroom-bot/internal/jobs"
	"github.com/olushola/classroom-bot/internal/lesson"
	"github.com/olushola/classroom-bot/internal/logging"
	"github.com/olushola/classroom-bot/internal/observability"
	"github.com/olushola/classroom-bot/internal/session"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "classroom-bot:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env, version)
	if err != nil {
		return err
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg.Base)
	log := lg.Named("main")

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		log.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(ctx, database); err != nil {
		return err
	}
	journal := db.NewJournal(database)

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	log.Info("bot authorized", zap.String("username", bot.Self.UserName), zap.String("version", version))

	capturer := session.GatedCapturer{Enabled: cfg.ScreenShareEnabled}
	store := session.NewStore(func() *session.Controller {
		return session.NewController(lesson.TemplateProvider{}, capturer)
	})
	h := handlers.New(bot, store, journal, lg.Named("handlers"), cfg.Location, cfg.IsAdmin)

	runner := jobs.New(ctx, lg.Named("jobs"))
	runner.Every(cfg.SessionSweepInterval, "session_sweep",
		jobs.SweepSessions(store, journal, cfg.SessionTTL, lg.Named("jobs")))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.RunHTTP(gctx, cfg.HTTPAddr, database, lg.Level)
	})
	g.Go(func() error {
		<-gctx.Done()
		bot.StopReceivingUpdates()
		return nil
	})
	g.Go(func() error {
		return app.NewDispatcher(h, lg.Named("dispatcher")).Run(gctx, updates)
	})

	log.Info("classroom bot started", zap.String("http_addr", cfg.HTTPAddr))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("classroom bot stopped")
	return nil
}
