package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goxa2020/journal-bot/internal/config"
	"github.com/goxa2020/journal-bot/internal/db"
	"github.com/goxa2020/journal-bot/internal/journal"
	"github.com/goxa2020/journal-bot/internal/logger"
	"github.com/goxa2020/journal-bot/internal/metrics"
	"github.com/goxa2020/journal-bot/internal/model"
	errs "github.com/goxa2020/journal-bot/pkg/errors"

	"github.com/rs/zerolog"
)

// Service runs one grade synchronization for one user: login, walk both
// semesters' journals, decode, reconcile against the store, insert what is
// new, and record the outcome. Exactly one sync log row is written per run,
// on every exit path.
type Service struct {
	cfg    *config.Config
	repo   db.Repository
	client journal.Client
	pacer  Pacer
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(cfg *config.Config, repo db.Repository, client journal.Client, pacer Pacer) *Service {
	return &Service{
		cfg:    cfg,
		repo:   repo,
		client: client,
		pacer:  pacer,
		log:    logger.Get(),
		now:    time.Now,
	}
}

// SyncUser returns the number of newly inserted grades. The returned error is
// the run's terminal failure, already recorded in the sync log.
func (s *Service) SyncUser(ctx context.Context, userID int64) (int, error) {
	start := s.now()
	log := s.log.With().Int64("user_id", userID).Logger()
	log.Info().Msg("Starting grade sync")

	login, password, err := s.repo.GetCredentials(ctx, userID)
	if err != nil {
		return 0, s.fail(ctx, userID, start, fmt.Errorf("load credentials: %w", err))
	}
	if login == "" || password == "" {
		return 0, s.fail(ctx, userID, start, errs.ErrNoCredentials)
	}

	parsed, err := s.fetchAll(ctx, log, login, password)
	if err != nil {
		return 0, s.fail(ctx, userID, start, err)
	}

	inserted := 0
	for _, subj := range parsed {
		n, err := s.persistSubject(ctx, userID, subj)
		if err != nil {
			return 0, s.fail(ctx, userID, start, err)
		}
		inserted += n

		if err := s.pacer.SubjectPersist(ctx); err != nil {
			return 0, s.fail(ctx, userID, start, err)
		}
	}

	s.record(ctx, userID, model.SyncStatusSuccess, nil, inserted)
	if err := s.repo.UpdateLastSync(ctx, userID, s.now()); err != nil {
		log.Warn().Err(err).Msg("Failed to update last sync timestamp")
	}

	duration := s.now().Sub(start)
	metrics.SyncRun(string(model.SyncStatusSuccess), duration.Seconds(), inserted)
	log.Info().
		Int("new_grades", inserted).
		Int("subjects", len(parsed)).
		Dur("duration", duration).
		Msg("Grade sync completed")

	return inserted, nil
}

// fetchAll walks both semesters of the current academic year and decodes every
// journal. Journals that decode to nothing contribute nothing; a run that
// produces no subjects at all is an abnormal outcome.
func (s *Service) fetchAll(ctx context.Context, log zerolog.Logger, login, password string) ([]model.SubjectGrades, error) {
	fingerprint, err := s.client.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}

	token, err := s.client.Authenticate(ctx, login, password, fingerprint)
	if err != nil {
		return nil, err
	}

	now := s.now()
	year := journal.AcademicYear(now)
	lookback := s.cfg.Sync.LookbackDays

	var parsed []model.SubjectGrades
	for semester := 1; semester <= 2; semester++ {
		journals, err := s.client.JournalList(ctx, token, year, semester)
		if err != nil {
			return nil, err
		}

		for _, summary := range journals {
			if err := s.pacer.JournalFetch(ctx); err != nil {
				return nil, err
			}

			payload, err := s.client.JournalDetail(ctx, token, summary.ID)
			if err != nil {
				return nil, err
			}
			if payload.Data == nil {
				continue
			}

			discipline := firstNonEmpty(payload.Data.JournalInfo.Discipline, summary.Discipline)
			if discipline == "" {
				continue
			}
			teacher := firstNonEmpty(payload.Data.JournalInfo.TeacherName, summary.TeacherName)

			lessons, err := journal.DecodeLessons(payload.Data, journal.StudentSelector{}, now, lookback)
			if err != nil {
				// A journal without a locatable student row is dropped;
				// anything else fails the whole run rather than silently
				// skipping data.
				if errors.Is(err, errs.ErrStudentNotFound) {
					log.Warn().
						Int64("journal_id", summary.ID).
						Str("discipline", discipline).
						Msg("Student row not found, skipping journal")
					continue
				}
				return nil, err
			}
			if len(lessons) == 0 {
				continue
			}

			grades := make([]model.ParsedGrade, len(lessons))
			for i, lesson := range lessons {
				grades[i] = model.ParsedGrade{
					Date:  lesson.Date.Format(dateLayout),
					Value: lesson.Value,
					Type:  lesson.Kind,
				}
			}

			parsed = append(parsed, model.SubjectGrades{
				Code:    strconv.FormatInt(summary.ID, 10),
				Name:    discipline,
				Teacher: teacher,
				Grades:  grades,
			})
		}
	}

	if len(parsed) == 0 {
		return nil, errs.ErrNoData
	}

	return parsed, nil
}

func (s *Service) persistSubject(ctx context.Context, userID int64, subj model.SubjectGrades) (int, error) {
	subject, err := s.repo.FindSubjectByCode(ctx, userID, subj.Code)
	if err != nil {
		return 0, fmt.Errorf("find subject %s: %w", subj.Code, err)
	}
	if subject == nil {
		subject, err = s.repo.CreateSubject(ctx, userID, subj.Name, subj.Code, subj.Teacher)
		if err != nil {
			return 0, fmt.Errorf("create subject %s: %w", subj.Code, err)
		}
	}

	existing, err := s.repo.ListGradesBySubject(ctx, subject.ID)
	if err != nil {
		return 0, fmt.Errorf("list grades for subject %d: %w", subject.ID, err)
	}

	toInsert, count := Reconcile(existing, subj.Grades)
	for _, grade := range toInsert {
		if err := s.repo.CreateGrade(ctx, subject.ID, grade); err != nil {
			return 0, fmt.Errorf("create grade for subject %d: %w", subject.ID, err)
		}
	}

	return count, nil
}

// fail records the run's terminal failure and returns the original error.
func (s *Service) fail(ctx context.Context, userID int64, start time.Time, err error) error {
	msg := failureMessage(err)
	s.record(ctx, userID, model.SyncStatusError, &msg, 0)
	metrics.SyncRun(string(model.SyncStatusError), s.now().Sub(start).Seconds(), 0)

	s.log.Error().Err(err).Int64("user_id", userID).Str("reason", msg).Msg("Grade sync failed")
	return err
}

func (s *Service) record(ctx context.Context, userID int64, status model.SyncStatus, errorMessage *string, count int) {
	if err := s.repo.RecordSyncLog(ctx, userID, status, errorMessage, count); err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to record sync log")
	}
}

// failureMessage maps the error taxonomy onto the human-readable message the
// front-end shows. This pair (status, message) is the only channel it has.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, errs.ErrNoCredentials):
		return "no stored credentials"
	case errors.Is(err, errs.ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, errs.ErrSessionExpired):
		return "session expired"
	case errors.Is(err, errs.ErrNoData):
		return "no courses or grades found"
	case errs.IsTransport(err):
		return fmt.Sprintf("portal unavailable: %v", err)
	default:
		return fmt.Sprintf("unexpected error: %v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
