package worker

import (
	"context"
	"time"

	"github.com/goxa2020/journal-bot/internal/config"
	"github.com/goxa2020/journal-bot/internal/db"
	"github.com/goxa2020/journal-bot/internal/logger"
	"github.com/goxa2020/journal-bot/internal/model"
	"github.com/goxa2020/journal-bot/internal/queue"

	"github.com/rs/zerolog"
)

// Scheduler enqueues a sync job for every user with stored credentials once a
// day, at end of day. Each user appears at most once per cycle, which keeps
// concurrent runs for the same user out of the queue.
type Scheduler struct {
	cfg      *config.Config
	repo     db.Repository
	producer *queue.Producer
	timer    *time.Timer
	log      zerolog.Logger
}

func NewScheduler(
	cfg *config.Config,
	repo db.Repository,
	redisClient *queue.RedisClient,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		repo:     repo,
		producer: queue.NewProducer(redisClient, cfg),
		log:      logger.Get(),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info().Msg("Starting sync scheduler")

	nextRun := s.getNextRunTime()
	s.log.Info().Time("next_run", nextRun).Msg("Scheduled next sync cycle")

	if s.cfg.Workers.Scheduler.RunOnStart {
		s.log.Info().Msg("Running initial sync cycle on startup")
		if err := s.enqueueAll(ctx); err != nil {
			s.log.Error().Err(err).Msg("Initial sync cycle failed")
		}
	}

	s.timer = time.NewTimer(time.Until(nextRun))

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Scheduler context cancelled")
			return ctx.Err()
		case <-s.timer.C:
			s.log.Info().Msg("Starting scheduled sync cycle")
			if err := s.enqueueAll(ctx); err != nil {
				s.log.Error().Err(err).Msg("Scheduled sync cycle failed")
			}

			nextRun = s.getNextRunTime()
			s.log.Info().Time("next_run", nextRun).Msg("Scheduled next sync cycle")
			s.timer.Reset(time.Until(nextRun))
		}
	}
}

func (s *Scheduler) Stop() {
	s.log.Info().Msg("Stopping scheduler")
	if s.timer != nil {
		s.timer.Stop()
	}
}

// getNextRunTime returns the time for end of current day
func (s *Scheduler) getNextRunTime() time.Time {
	now := time.Now()

	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	if now.After(endOfDay) {
		endOfDay = endOfDay.Add(24 * time.Hour)
	}

	return endOfDay
}

func (s *Scheduler) enqueueAll(ctx context.Context) error {
	startTime := time.Now()

	userIDs, err := s.repo.ListUserIDsWithCredentials(ctx)
	if err != nil {
		return err
	}

	enqueued := 0
	for _, userID := range userIDs {
		if err := s.producer.EnqueueSyncJob(ctx, model.SyncJob{UserID: userID}); err != nil {
			s.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to enqueue sync job")
			continue
		}
		enqueued++
	}

	s.log.Info().
		Dur("duration", time.Since(startTime)).
		Int("users", len(userIDs)).
		Int("enqueued", enqueued).
		Msg("Sync cycle enqueued")

	return nil
}
