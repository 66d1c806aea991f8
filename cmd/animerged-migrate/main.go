package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/animerged/pkg/config"
	"github.com/platinummonkey/animerged/pkg/storage/postgres"
)

func main() {
	down := flag.Int("down", 0, "Roll back the migration with this version instead of migrating up")
	list := flag.Bool("list", false, "List known migrations and exit")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := setupLogger(*logLevel)

	if *list {
		for _, m := range postgres.GetMigrations() {
			logger.WithField("version", m.Version).Info(m.Description)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := postgres.Open(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if *down > 0 {
		if err := postgres.RollbackMigration(ctx, db, *down, logger); err != nil {
			logger.Errorf("Rollback failed: %v", err)
			db.Close()
			os.Exit(1)
		}
		logger.Infof("Rolled back migration %d", *down)
		return
	}

	if err := postgres.RunMigrations(ctx, db, logger); err != nil {
		logger.Errorf("Migration failed: %v", err)
		db.Close()
		os.Exit(1)
	}
	logger.Info("Database schema is up to date")
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
