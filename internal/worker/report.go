package worker

import (
	"context"
	"encoding/json"

	"github.com/goxa2020/journal-bot/internal/config"
	"github.com/goxa2020/journal-bot/internal/db"
	"github.com/goxa2020/journal-bot/internal/logger"
	"github.com/goxa2020/journal-bot/internal/model"
	"github.com/goxa2020/journal-bot/internal/queue"
	"github.com/goxa2020/journal-bot/internal/report"
	"github.com/goxa2020/journal-bot/internal/storage"

	"github.com/rs/zerolog"
)

// ReportWorker consumes the report queue and builds one grade workbook per
// job, uploading it to object storage.
type ReportWorker struct {
	cfg        *config.Config
	builder    *report.Builder
	consumer   *queue.Consumer
	workerPool *WorkerPool
	log        zerolog.Logger
}

func NewReportWorker(
	cfg *config.Config,
	repo db.Repository,
	store storage.Storage,
	redisClient *queue.RedisClient,
) *ReportWorker {
	return &ReportWorker{
		cfg:        cfg,
		builder:    report.NewBuilder(repo, store),
		consumer:   queue.NewConsumer(redisClient, cfg),
		workerPool: NewWorkerPool(cfg.Workers.Report.Count),
		log:        logger.Get(),
	}
}

func (w *ReportWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting report worker")

	w.workerPool.Start(ctx)

	return w.consumer.ConsumeReportQueue(ctx, w.handleMessage)
}

func (w *ReportWorker) Stop() {
	w.log.Info().Msg("Stopping report worker")
	w.workerPool.Stop()
}

func (w *ReportWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.ReportJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal report job")
		return err
	}

	w.log.Info().Int64("user_id", job.UserID).Msg("Processing report job")

	w.workerPool.Submit(func(ctx context.Context) error {
		key, err := w.builder.BuildAndUpload(ctx, job.UserID)
		if err != nil {
			w.log.Error().Err(err).Int64("user_id", job.UserID).Msg("Report generation failed")
			return err
		}
		w.log.Info().Int64("user_id", job.UserID).Str("object_key", key).Msg("Report uploaded")
		return nil
	})

	return nil
}
