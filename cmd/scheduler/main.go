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
	"github.com/goxa2020/journal-bot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting scheduler")

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

	scheduler := worker.NewScheduler(cfg, repo, redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := scheduler.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Scheduler failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down scheduler")
	cancel()
	scheduler.Stop()
	log.Info().Msg("Scheduler stopped")
}
