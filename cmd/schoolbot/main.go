package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"school_admin/internal/app"
	domainTelegram "school_admin/internal/domain/telegram"
	"school_admin/internal/infra/channel"
	"school_admin/internal/infra/config"
	idb "school_admin/internal/infra/database"
	"school_admin/internal/infra/logger"
	"school_admin/internal/infra/scheduler"
	"school_admin/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"school":      cfg.SchoolName,
		"bot_enabled": cfg.TelegramToken != "",
	}).Info("School admin service starting")

	db, err := idb.NewPostgresConnection(context.Background(), cfg.DatabaseURL, idb.PoolSettings{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()

	if err := idb.MigrateUp(db.DB); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply migrations")
	}
	mainLogger.Info("Database ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := idb.NewStore(db)
	senders := channel.NewSenders(cfg, logger.Component("channel"))

	var bot *telebot.Bot
	var alerts domainTelegram.Client
	if cfg.TelegramToken != "" {
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := logger.Component("telebot").WithError(err)
				if c != nil && c.Sender() != nil {
					entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "text": c.Text()})
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		alerts = telegram.NewTelebotAdapter(bot)
	}

	rosterService := app.NewRosterService(store, logger.Component("roster"))
	notificationService := app.NewNotificationService(store, senders, alerts, app.NotificationConfig{
		School:      cfg.SchoolName,
		Scale:       cfg.NotifyScale,
		AdminChatID: cfg.AdminTelegramID,
	}, logger.Component("dispatcher"))
	ledgerService := app.NewLedgerService(store, notificationService, cfg.NotifyScale, logger.Component("ledger"))

	retryScheduler := scheduler.NewRetryScheduler(notificationService, logger.Component("scheduler"), cfg.CronSpecRetrySweep)
	if err := retryScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start retry scheduler")
	}

	if bot != nil {
		dir := telegram.DirectoryFromConfig(cfg)
		botLogger := logger.Component("bot")
		telegram.RegisterBotCommands(bot, dir, cfg.SchoolName, botLogger)
		telegram.NewAdminHandlers(ctx, rosterService, ledgerService, notificationService, dir, botLogger).Register(bot)
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	mainLogger.WithField("signal", sig.String()).Info("Shutting down")
	cancel()
	if bot != nil {
		bot.Stop()
	}
	retryScheduler.Stop()
	mainLogger.Info("Shut down gracefully")
}
