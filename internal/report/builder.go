package report

import (
	"bytes"
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/goxa2020/journal-bot/internal/db"
	"github.com/goxa2020/journal-bot/internal/logger"
	"github.com/goxa2020/journal-bot/internal/model"
	"github.com/goxa2020/journal-bot/internal/storage"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

// Builder renders one user's synced subjects and grades into an xlsx workbook
// and uploads it to object storage under reports/{user_id}/{timestamp}.xlsx.
type Builder struct {
	repo  db.Repository
	store storage.Storage
	log   zerolog.Logger
	now   func() time.Time
}

func NewBuilder(repo db.Repository, store storage.Storage) *Builder {
	return &Builder{
		repo:  repo,
		store: store,
		log:   logger.Get(),
		now:   time.Now,
	}
}

func (b *Builder) BuildAndUpload(ctx context.Context, userID int64) (string, error) {
	data, err := b.Build(ctx, userID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("reports/%d/%s.xlsx", userID, b.now().UTC().Format("20060102T150405"))
	if err := b.store.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	return key, nil
}

// Build renders the workbook: a summary sheet plus one sheet per subject.
func (b *Builder) Build(ctx context.Context, userID int64) ([]byte, error) {
	subjects, err := b.repo.ListSubjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	summaryHeader := []interface{}{"Subject", "Code", "Teacher", "Grades"}
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return nil, err
	}

	for i, subject := range subjects {
		grades, err := b.repo.ListGradesBySubject(ctx, subject.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list grades for subject %d: %w", subject.ID, err)
		}

		row := []interface{}{subject.Name, subject.Code, subject.Teacher, len(grades)}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}

		if err := b.addSubjectSheet(f, subject, grades); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	b.log.Debug().Int64("user_id", userID).Int("subjects", len(subjects)).Msg("Report workbook built")
	return buf.Bytes(), nil
}

func (b *Builder) addSubjectSheet(f *excelize.File, subject model.Subject, grades []model.Grade) error {
	name := sheetName(subject)
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	header := []interface{}{"Date", "Value", "Type", "Comment"}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}

	for i, g := range grades {
		row := []interface{}{g.Date.Format("2006-01-02"), g.Value, g.Type, g.Comment}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}

	return nil
}

// sheetName keeps within Excel's 31-character sheet name limit and avoids
// collisions between similarly named subjects by suffixing the code. The limit
// counts characters, not bytes, and subject names are mostly Cyrillic.
func sheetName(subject model.Subject) string {
	suffix := " (" + subject.Code + ")"
	name := []rune(subject.Name)
	if max := 31 - utf8.RuneCountInString(suffix); len(name) > max {
		name = name[:max]
	}
	return string(name) + suffix
}
