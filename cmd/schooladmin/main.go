package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"school_admin/internal/app"
	"school_admin/internal/infra/channel"
	"school_admin/internal/infra/config"
	idb "school_admin/internal/infra/database"
	"school_admin/internal/infra/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Component("cli")

	db, err := idb.NewPostgresConnection(context.Background(), cfg.DatabaseURL, idb.PoolSettings{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := idb.NewStore(db)
	senders := channel.NewSenders(cfg, logger.Component("channel"))
	dispatcher := app.NewNotificationService(store, senders, nil, app.NotificationConfig{
		School: cfg.SchoolName,
		Scale:  cfg.NotifyScale,
	}, logger.Component("dispatcher"))

	cli := &commandLine{
		db:         db.DB,
		importer:   app.NewImportService(store, logger.Component("import")),
		rosterSvc:  app.NewRosterService(store, logger.Component("roster")),
		dispatcher: dispatcher,
		out:        os.Stdout,
	}

	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
