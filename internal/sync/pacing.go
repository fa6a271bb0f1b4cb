package sync

import (
	"context"
	"time"

	"github.com/goxa2020/journal-bot/internal/config"
)

// Pacer spaces out the two rate-limited phases of a run: per-journal detail
// fetches and per-subject persistence. The portal throttles aggressive
// clients, so production delays are mandatory; tests inject NopPacer.
type Pacer interface {
	JournalFetch(ctx context.Context) error
	SubjectPersist(ctx context.Context) error
}

type FixedPacer struct {
	journalFetch   time.Duration
	subjectPersist time.Duration
}

func NewFixedPacer(cfg *config.Config) *FixedPacer {
	return &FixedPacer{
		journalFetch:   cfg.Sync.JournalFetchDelay,
		subjectPersist: cfg.Sync.SubjectPersistDelay,
	}
}

func (p *FixedPacer) JournalFetch(ctx context.Context) error {
	return sleep(ctx, p.journalFetch)
}

func (p *FixedPacer) SubjectPersist(ctx context.Context) error {
	return sleep(ctx, p.subjectPersist)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// NopPacer skips all delays.
type NopPacer struct{}

func (NopPacer) JournalFetch(ctx context.Context) error   { return nil }
func (NopPacer) SubjectPersist(ctx context.Context) error { return nil }
