package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/goxa2020/journal-bot/internal/crypto"
	"github.com/goxa2020/journal-bot/internal/logger"
	"github.com/goxa2020/journal-bot/internal/model"

	"github.com/rs/zerolog"
)

// Repository is the narrow storage surface the sync engine and the API rely
// on. Credentials cross this boundary in plaintext; sealing happens inside.
type Repository interface {
	GetCredentials(ctx context.Context, userID int64) (login, password string, err error)
	SetCredentials(ctx context.Context, userID int64, login, password string) error
	ListUserIDsWithCredentials(ctx context.Context) ([]int64, error)
	UpdateLastSync(ctx context.Context, userID int64, ts time.Time) error

	FindSubjectByCode(ctx context.Context, userID int64, code string) (*model.Subject, error)
	CreateSubject(ctx context.Context, userID int64, name, code, teacher string) (*model.Subject, error)
	ListSubjects(ctx context.Context, userID int64) ([]model.Subject, error)

	ListGradesBySubject(ctx context.Context, subjectID int64) ([]model.Grade, error)
	CreateGrade(ctx context.Context, subjectID int64, grade model.NewGrade) error
	ListRecentGrades(ctx context.Context, userID int64, limit int) ([]model.Grade, error)

	RecordSyncLog(ctx context.Context, userID int64, status model.SyncStatus, errorMessage *string, gradesCount int) error
	ListSyncLogs(ctx context.Context, userID int64, limit int) ([]model.SyncLog, error)
}

type repository struct {
	db     *sql.DB
	cipher *crypto.Cipher
	log    zerolog.Logger
}

func NewRepository(db *sql.DB, cipher *crypto.Cipher) Repository {
	return &repository{db: db, cipher: cipher, log: logger.Get()}
}

func (r *repository) GetCredentials(ctx context.Context, userID int64) (string, string, error) {
	query := `SELECT edu_login_encrypted, edu_password_encrypted FROM users WHERE id = ?`

	var sealedLogin, sealedPassword sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&sealedLogin, &sealedPassword)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	if !sealedLogin.Valid || !sealedPassword.Valid || sealedLogin.String == "" || sealedPassword.String == "" {
		return "", "", nil
	}

	login, err := r.cipher.Open(sealedLogin.String)
	if err != nil {
		r.log.Debug().Err(err).Int64("user_id", userID).Msg("Failed to decrypt stored login")
		return "", "", nil
	}
	password, err := r.cipher.Open(sealedPassword.String)
	if err != nil {
		r.log.Debug().Err(err).Int64("user_id", userID).Msg("Failed to decrypt stored password")
		return "", "", nil
	}

	return login, password, nil
}

func (r *repository) SetCredentials(ctx context.Context, userID int64, login, password string) error {
	sealedLogin, err := r.cipher.Seal(login)
	if err != nil {
		return err
	}
	sealedPassword, err := r.cipher.Seal(password)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (id, edu_login_encrypted, edu_password_encrypted)
			  VALUES (?, ?, ?)
			  ON DUPLICATE KEY UPDATE edu_login_encrypted = VALUES(edu_login_encrypted),
									  edu_password_encrypted = VALUES(edu_password_encrypted)`

	_, err = r.db.ExecContext(ctx, query, userID, sealedLogin, sealedPassword)
	return err
}

func (r *repository) ListUserIDsWithCredentials(ctx context.Context) ([]int64, error) {
	query := `SELECT id FROM users
			  WHERE edu_login_encrypted IS NOT NULL AND edu_login_encrypted != ''
				AND edu_password_encrypted IS NOT NULL AND edu_password_encrypted != ''`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *repository) UpdateLastSync(ctx context.Context, userID int64, ts time.Time) error {
	query := `UPDATE users SET last_sync = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, ts, userID)
	return err
}

func (r *repository) FindSubjectByCode(ctx context.Context, userID int64, code string) (*model.Subject, error) {
	query := `SELECT id, user_id, name, code, teacher, created_at FROM subjects
			  WHERE user_id = ? AND code = ?`

	var subject model.Subject
	err := r.db.QueryRowContext(ctx, query, userID, code).Scan(
		&subject.ID, &subject.UserID, &subject.Name, &subject.Code,
		&subject.Teacher, &subject.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &subject, nil
}

func (r *repository) CreateSubject(ctx context.Context, userID int64, name, code, teacher string) (*model.Subject, error) {
	query := `INSERT INTO subjects (user_id, name, code, teacher) VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, userID, name, code, teacher)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &model.Subject{
		ID:      id,
		UserID:  userID,
		Name:    name,
		Code:    code,
		Teacher: teacher,
	}, nil
}

func (r *repository) ListSubjects(ctx context.Context, userID int64) ([]model.Subject, error) {
	query := `SELECT id, user_id, name, code, teacher, created_at FROM subjects
			  WHERE user_id = ? ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Code, &s.Teacher, &s.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}

	return subjects, rows.Err()
}

func (r *repository) ListGradesBySubject(ctx context.Context, subjectID int64) ([]model.Grade, error) {
	query := `SELECT id, subject_id, date, value, type, comment, created_at FROM grades
			  WHERE subject_id = ? ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanGrades(rows)
}

func (r *repository) CreateGrade(ctx context.Context, subjectID int64, grade model.NewGrade) error {
	query := `INSERT INTO grades (subject_id, date, value, type, comment) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, subjectID, grade.Date, grade.Value, grade.Type, grade.Comment)
	return err
}

func (r *repository) ListRecentGrades(ctx context.Context, userID int64, limit int) ([]model.Grade, error) {
	query := `SELECT g.id, g.subject_id, g.date, g.value, g.type, g.comment, g.created_at
			  FROM grades g JOIN subjects s ON s.id = g.subject_id
			  WHERE s.user_id = ? ORDER BY g.date DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanGrades(rows)
}

func (r *repository) RecordSyncLog(ctx context.Context, userID int64, status model.SyncStatus, errorMessage *string, gradesCount int) error {
	query := `INSERT INTO sync_logs (user_id, status, error_message, grades_count) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, userID, status, errorMessage, gradesCount)
	return err
}

func (r *repository) ListSyncLogs(ctx context.Context, userID int64, limit int) ([]model.SyncLog, error) {
	query := `SELECT id, user_id, status, error_message, grades_count, created_at FROM sync_logs
			  WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.SyncLog
	for rows.Next() {
		var l model.SyncLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Status, &l.ErrorMessage, &l.GradesCount, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

func scanGrades(rows *sql.Rows) ([]model.Grade, error) {
	var grades []model.Grade
	for rows.Next() {
		var g model.Grade
		if err := rows.Scan(&g.ID, &g.SubjectID, &g.Date, &g.Value, &g.Type, &g.Comment, &g.CreatedAt); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}
