package worker

import (
	"context"
	"encoding/json"

	"github.com/goxa2020/journal-bot/internal/config"
	"github.com/goxa2020/journal-bot/internal/db"
	"github.com/goxa2020/journal-bot/internal/journal"
	"github.com/goxa2020/journal-bot/internal/logger"
	"github.com/goxa2020/journal-bot/internal/model"
	"github.com/goxa2020/journal-bot/internal/queue"
	"github.com/goxa2020/journal-bot/internal/sync"

	"github.com/rs/zerolog"
)

// SyncWorker consumes the sync queue and runs one synchronization per job.
// Per-user serialization is the enqueuer's concern: the scheduler enqueues
// each user at most once per cycle.
type SyncWorker struct {
	cfg         *config.Config
	syncService *sync.Service
	consumer    *queue.Consumer
	workerPool  *WorkerPool
	log         zerolog.Logger
}

func NewSyncWorker(
	cfg *config.Config,
	repo db.Repository,
	redisClient *queue.RedisClient,
) *SyncWorker {
	return &SyncWorker{
		cfg:         cfg,
		syncService: sync.NewService(cfg, repo, journal.NewHTTPClient(cfg), sync.NewFixedPacer(cfg)),
		consumer:    queue.NewConsumer(redisClient, cfg),
		workerPool:  NewWorkerPool(cfg.Workers.Sync.Count),
		log:         logger.Get(),
	}
}

func (w *SyncWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting sync worker")

	w.workerPool.Start(ctx)

	return w.consumer.ConsumeSyncQueue(ctx, w.handleMessage)
}

func (w *SyncWorker) Stop() {
	w.log.Info().Msg("Stopping sync worker")
	w.workerPool.Stop()
}

func (w *SyncWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.SyncJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal sync job")
		return err
	}

	w.log.Info().Int64("user_id", job.UserID).Msg("Processing sync job")

	w.workerPool.Submit(func(ctx context.Context) error {
		// The run records its own outcome in the sync log; a failure here
		// must not bounce the job to the DLQ for a retry that would fail
		// the same way.
		if _, err := w.syncService.SyncUser(ctx, job.UserID); err != nil {
			w.log.Warn().Err(err).Int64("user_id", job.UserID).Msg("Sync run failed")
		}
		return nil
	})

	return nil
}
