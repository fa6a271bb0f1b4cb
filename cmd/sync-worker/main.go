package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goxa2020/journal-bot/internal/config"
	"github.com/goxa2020/journal-bot/internal/crypto"
	"github.com/goxa2020/journal-bot/internal/db"
	"github.com/goxa2020/journal-bot/internal/logger"
	"github.com/goxa2020/journal-bot/internal/queue"
	"github.com/goxa2020/journal-bot/internal/storage"
	"github.com/goxa2020/journal-bot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting sync worker")

	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	cipher, err := crypto.NewCipher(cfg.Crypto.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid encryption key")
	}

	repo := db.NewRepository(database, cipher)

	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	store, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
	}

	syncWorker := worker.NewSyncWorker(cfg, repo, redisClient)
	reportWorker := worker.NewReportWorker(cfg, repo, store, redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := syncWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Sync worker failed")
		}
	}()

	go func() {
		if err := reportWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Report worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down sync worker")
	cancel()
	syncWorker.Stop()
	reportWorker.Stop()
	log.Info().Msg("Sync worker stopped")
}
