package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goxa2020/journal-bot/internal/config"
	"github.com/goxa2020/journal-bot/internal/model"
	errs "github.com/goxa2020/journal-bot/pkg/errors"
)

var testNow = time.Date(2025, 11, 25, 12, 0, 0, 0, time.UTC)

type fakeClient struct {
	authErr   error
	listErr   error
	lists     map[int][]model.JournalSummary
	details   map[int64]*model.JournalPayload
	detailErr map[int64]error
	calls     []string
}

func (c *fakeClient) Fingerprint(ctx context.Context) (string, error) {
	c.calls = append(c.calls, "fingerprint")
	return "fp", nil
}

func (c *fakeClient) Authenticate(ctx context.Context, login, password, fingerprint string) (string, error) {
	c.calls = append(c.calls, "auth")
	if c.authErr != nil {
		return "", c.authErr
	}
	return "token", nil
}

func (c *fakeClient) JournalList(ctx context.Context, token, year string, semester int) ([]model.JournalSummary, error) {
	c.calls = append(c.calls, fmt.Sprintf("list:%d", semester))
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.lists[semester], nil
}

func (c *fakeClient) JournalDetail(ctx context.Context, token string, journalID int64) (*model.JournalPayload, error) {
	c.calls = append(c.calls, fmt.Sprintf("detail:%d", journalID))
	if err := c.detailErr[journalID]; err != nil {
		return nil, err
	}
	return c.details[journalID], nil
}

type fakeRepo struct {
	creds         map[int64][2]string
	nextSubjectID int64
	subjects      []model.Subject
	grades        map[int64][]model.Grade
	logs          []model.SyncLog
	lastSync      map[int64]time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		creds:    make(map[int64][2]string),
		grades:   make(map[int64][]model.Grade),
		lastSync: make(map[int64]time.Time),
	}
}

func (r *fakeRepo) GetCredentials(ctx context.Context, userID int64) (string, string, error) {
	c := r.creds[userID]
	return c[0], c[1], nil
}

func (r *fakeRepo) SetCredentials(ctx context.Context, userID int64, login, password string) error {
	r.creds[userID] = [2]string{login, password}
	return nil
}

func (r *fakeRepo) ListUserIDsWithCredentials(ctx context.Context) ([]int64, error) {
	var ids []int64
	for id := range r.creds {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeRepo) UpdateLastSync(ctx context.Context, userID int64, ts time.Time) error {
	r.lastSync[userID] = ts
	return nil
}

func (r *fakeRepo) FindSubjectByCode(ctx context.Context, userID int64, code string) (*model.Subject, error) {
	for i := range r.subjects {
		if r.subjects[i].UserID == userID && r.subjects[i].Code == code {
			return &r.subjects[i], nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) CreateSubject(ctx context.Context, userID int64, name, code, teacher string) (*model.Subject, error) {
	r.nextSubjectID++
	s := model.Subject{ID: r.nextSubjectID, UserID: userID, Name: name, Code: code, Teacher: teacher}
	r.subjects = append(r.subjects, s)
	return &s, nil
}

func (r *fakeRepo) ListSubjects(ctx context.Context, userID int64) ([]model.Subject, error) {
	var out []model.Subject
	for _, s := range r.subjects {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListGradesBySubject(ctx context.Context, subjectID int64) ([]model.Grade, error) {
	return r.grades[subjectID], nil
}

func (r *fakeRepo) CreateGrade(ctx context.Context, subjectID int64, grade model.NewGrade) error {
	r.grades[subjectID] = append(r.grades[subjectID], model.Grade{
		SubjectID: subjectID,
		Date:      grade.Date,
		Value:     grade.Value,
		Type:      grade.Type,
		Comment:   grade.Comment,
	})
	return nil
}

func (r *fakeRepo) ListRecentGrades(ctx context.Context, userID int64, limit int) ([]model.Grade, error) {
	return nil, nil
}

func (r *fakeRepo) RecordSyncLog(ctx context.Context, userID int64, status model.SyncStatus, errorMessage *string, gradesCount int) error {
	r.logs = append(r.logs, model.SyncLog{
		UserID:       userID,
		Status:       status,
		ErrorMessage: errorMessage,
		GradesCount:  gradesCount,
	})
	return nil
}

func (r *fakeRepo) ListSyncLogs(ctx context.Context, userID int64, limit int) ([]model.SyncLog, error) {
	return r.logs, nil
}

func newTestService(repo *fakeRepo, client *fakeClient) *Service {
	cfg := &config.Config{}
	cfg.Sync.LookbackDays = 730

	svc := NewService(cfg, repo, client, NopPacer{})
	svc.now = func() time.Time { return testNow }
	return svc
}

func journalPayload(dis, teacher string, dates []model.JournalDate, cells map[string]string, vals []model.ValueCode) *model.JournalPayload {
	return &model.JournalPayload{
		Data: &model.JournalData{
			JournalInfo:  model.JournalInfo{Discipline: dis, TeacherName: teacher},
			JournalVal:   vals,
			JournalData:  []model.StudentRow{{ID: 1, FullName: "Ivanov Ivan", Cells: cells}},
			JournalDates: dates,
		},
	}
}

func lastLog(t *testing.T, repo *fakeRepo) model.SyncLog {
	t.Helper()
	if len(repo.logs) != 1 {
		t.Fatalf("got %d sync log entries, want exactly 1", len(repo.logs))
	}
	return repo.logs[0]
}

func TestSyncUserEndToEnd(t *testing.T) {
	repo := newFakeRepo()
	repo.creds[7] = [2]string{"student", "secret"}

	// Semester 1: one journal, 3 lessons, one of them a (date, value)
	// duplicate. Semester 2: one journal with no decodable cells.
	client := &fakeClient{
		lists: map[int][]model.JournalSummary{
			1: {{ID: 42, Discipline: "Physics", TeacherName: "Petrova A.A."}},
			2: {{ID: 43, Discipline: "History", TeacherName: "Orlov O.O."}},
		},
		details: map[int64]*model.JournalPayload{
			42: journalPayload("Physics", "Petrova A.A.",
				[]model.JournalDate{
					{Date: "2025-11-20T00:00:00", DateID: 1, HourNumber: 1},
					{Date: "2025-11-21T00:00:00", DateID: 2, HourNumber: 1},
					{Date: "2025-11-20T00:00:00", DateID: 3, HourNumber: 2}, // duplicate of DateID 1
				},
				map[string]string{"1": "10", "2": "11", "3": "10"},
				[]model.ValueCode{
					{ID: 10, Value: "5", IsMark: true},
					{ID: 11, Value: "4", IsMark: true},
				}),
			43: journalPayload("History", "Orlov O.O.", nil, nil, nil),
		},
	}

	svc := newTestService(repo, client)
	count, err := svc.SyncUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}
	if count != 2 {
		t.Errorf("new grades = %d, want 2", count)
	}

	if len(repo.subjects) != 1 {
		t.Fatalf("subjects = %+v, want exactly one (empty journal dropped)", repo.subjects)
	}
	subject := repo.subjects[0]
	if subject.Code != "42" || subject.Name != "Physics" || subject.Teacher != "Petrova A.A." {
		t.Errorf("subject = %+v", subject)
	}
	if len(repo.grades[subject.ID]) != 2 {
		t.Errorf("stored grades = %+v, want 2", repo.grades[subject.ID])
	}

	log := lastLog(t, repo)
	if log.Status != model.SyncStatusSuccess || log.GradesCount != 2 {
		t.Errorf("sync log = %+v, want success with count 2", log)
	}
	if _, ok := repo.lastSync[7]; !ok {
		t.Error("last sync timestamp not updated")
	}
}

func TestSyncUserSecondRunInsertsNothing(t *testing.T) {
	repo := newFakeRepo()
	repo.creds[7] = [2]string{"student", "secret"}

	client := &fakeClient{
		lists: map[int][]model.JournalSummary{
			1: {{ID: 42, Discipline: "Physics"}},
		},
		details: map[int64]*model.JournalPayload{
			42: journalPayload("Physics", "",
				[]model.JournalDate{{Date: "2025-11-20T00:00:00", DateID: 1, HourNumber: 1}},
				map[string]string{"1": "10"},
				[]model.ValueCode{{ID: 10, Value: "5", IsMark: true}}),
		},
	}

	svc := newTestService(repo, client)
	if _, err := svc.SyncUser(context.Background(), 7); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	count, err := svc.SyncUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if count != 0 {
		t.Errorf("second run inserted %d grades, want 0", count)
	}
	if len(repo.subjects) != 1 {
		t.Errorf("second run duplicated the subject: %+v", repo.subjects)
	}
}

func TestSyncUserInvalidCredentials(t *testing.T) {
	repo := newFakeRepo()
	repo.creds[7] = [2]string{"student", "wrong"}

	client := &fakeClient{
		authErr: fmt.Errorf("auth status 401: %w", errs.ErrInvalidCredentials),
	}

	svc := newTestService(repo, client)
	count, err := svc.SyncUser(context.Background(), 7)
	if !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	if len(repo.subjects) != 0 {
		t.Errorf("no storage writes expected beyond the log, got subjects %+v", repo.subjects)
	}

	log := lastLog(t, repo)
	if log.Status != model.SyncStatusError || log.GradesCount != 0 {
		t.Errorf("sync log = %+v, want error with zero count", log)
	}
	if log.ErrorMessage == nil || *log.ErrorMessage != "invalid credentials" {
		t.Errorf("message = %v, want \"invalid credentials\"", log.ErrorMessage)
	}
}

func TestSyncUserNoStoredCredentials(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{}

	svc := newTestService(repo, client)
	_, err := svc.SyncUser(context.Background(), 7)
	if !errors.Is(err, errs.ErrNoCredentials) {
		t.Fatalf("got %v, want ErrNoCredentials", err)
	}

	if len(client.calls) != 0 {
		t.Errorf("portal contacted without credentials: %v", client.calls)
	}

	log := lastLog(t, repo)
	if log.ErrorMessage == nil || *log.ErrorMessage != "no stored credentials" {
		t.Errorf("message = %v", log.ErrorMessage)
	}
}

func TestSyncUserSessionExpiredMidRun(t *testing.T) {
	repo := newFakeRepo()
	repo.creds[7] = [2]string{"student", "secret"}

	client := &fakeClient{
		listErr: fmt.Errorf("journal_list status 401: %w", errs.ErrSessionExpired),
	}

	svc := newTestService(repo, client)
	_, err := svc.SyncUser(context.Background(), 7)
	if !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}

	log := lastLog(t, repo)
	if log.ErrorMessage == nil || *log.ErrorMessage != "session expired" {
		t.Errorf("message = %v, want \"session expired\"", log.ErrorMessage)
	}
}

func TestSyncUserNoData(t *testing.T) {
	repo := newFakeRepo()
	repo.creds[7] = [2]string{"student", "secret"}

	client := &fakeClient{lists: map[int][]model.JournalSummary{}}

	svc := newTestService(repo, client)
	_, err := svc.SyncUser(context.Background(), 7)
	if !errors.Is(err, errs.ErrNoData) {
		t.Fatalf("got %v, want ErrNoData", err)
	}

	log := lastLog(t, repo)
	if log.ErrorMessage == nil || *log.ErrorMessage != "no courses or grades found" {
		t.Errorf("message = %v", log.ErrorMessage)
	}
}

func TestSyncUserUnexpectedErrorFailsClosed(t *testing.T) {
	repo := newFakeRepo()
	repo.creds[7] = [2]string{"student", "secret"}

	client := &fakeClient{
		lists: map[int][]model.JournalSummary{
			1: {{ID: 42, Discipline: "Physics"}},
		},
		detailErr: map[int64]error{42: errors.New("boom")},
	}

	svc := newTestService(repo, client)
	_, err := svc.SyncUser(context.Background(), 7)
	if err == nil {
		t.Fatal("expected whole-run failure")
	}

	log := lastLog(t, repo)
	if log.Status != model.SyncStatusError {
		t.Errorf("status = %v, want error", log.Status)
	}
	if log.ErrorMessage == nil || *log.ErrorMessage != "unexpected error: boom" {
		t.Errorf("message = %v, want unexpected-error wrapping", log.ErrorMessage)
	}
}

func TestSyncUserDropsJournalWithoutStudentRow(t *testing.T) {
	repo := newFakeRepo()
	repo.creds[7] = [2]string{"student", "secret"}

	// Journal 42 has no student rows at all; journal 44 decodes normally.
	noRows := &model.JournalPayload{
		Data: &model.JournalData{
			JournalInfo:  model.JournalInfo{Discipline: "Ghost course"},
			JournalDates: []model.JournalDate{{Date: "2025-11-20T00:00:00", DateID: 1, HourNumber: 1}},
		},
	}

	client := &fakeClient{
		lists: map[int][]model.JournalSummary{
			1: {
				{ID: 42, Discipline: "Ghost course"},
				{ID: 44, Discipline: "Chemistry"},
			},
		},
		details: map[int64]*model.JournalPayload{
			42: noRows,
			44: journalPayload("Chemistry", "",
				[]model.JournalDate{{Date: "2025-11-21T00:00:00", DateID: 1, HourNumber: 1}},
				map[string]string{"1": "10"},
				[]model.ValueCode{{ID: 10, Value: "5", IsMark: true}}),
		},
	}

	svc := newTestService(repo, client)
	count, err := svc.SyncUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}
	if count != 1 || len(repo.subjects) != 1 || repo.subjects[0].Code != "44" {
		t.Errorf("count = %d, subjects = %+v; want only Chemistry", count, repo.subjects)
	}
}
