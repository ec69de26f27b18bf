package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"fieldwork/internal/config"
	"fieldwork/internal/database"
	"fieldwork/internal/domain/notification"
	"fieldwork/internal/pkg/logger"
)

// One-shot cleanup for cron. The API server runs the same job on a ticker.
func main() {
	retention := flag.Int("retention-days", notification.DefaultCleanupConfig().RetentionDays, "delete read notifications older than this")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}

	cleanup := notification.NewCleanupService(notification.NewRepository(db), log)
	deleted, err := cleanup.RunOnce(context.Background(), notification.CleanupConfig{RetentionDays: *retention})
	if err != nil {
		log.Fatal("cleanup failed", zap.Error(err))
	}
	log.Info("cleanup finished", zap.Int64("notifications_deleted", deleted))
}
