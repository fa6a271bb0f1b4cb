package journal

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goxa2020/journal-bot/internal/model"
	"github.com/goxa2020/journal-bot/pkg/errors"
)

// DefaultLookbackDays bounds how far back journal cells are decoded.
const DefaultLookbackDays = 730

// StudentSelector picks the student row inside a journal grid. Priority:
// explicit ID, then full name, then the first row when both are zero.
type StudentSelector struct {
	StudentID int64
	FullName  string
}

var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a journalDates entry. The portal occasionally emits a
// malformed midnight suffix without colon separators ("T000000"), which is
// normalized before parsing.
func ParseDate(s string) (time.Time, error) {
	normalized := strings.Replace(s, "T000000", "T00:00:00", 1)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &errors.DateParseError{Raw: s, Err: fmt.Errorf("no known layout matched")}
}

// DecodeLessons turns one journal detail payload into the selected student's
// ordered lesson list. Pure: the only inputs are the payload, the selector,
// the reference time and the lookback window.
//
// Cells are skipped, never fatal, when the date is older than the lookback
// cutoff, the date does not parse, the cell is empty or non-numeric, or the
// value code is unknown. Only a missing student row fails the journal.
func DecodeLessons(data *model.JournalData, sel StudentSelector, now time.Time, lookbackDays int) ([]model.Lesson, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	valueByID := make(map[int64]model.ValueCode, len(data.JournalVal))
	for _, v := range data.JournalVal {
		valueByID[v.ID] = v
	}

	row, err := findStudentRow(data.JournalData, sel)
	if err != nil {
		return nil, err
	}

	cutoff := dateOnly(now).AddDate(0, 0, -lookbackDays)

	var lessons []model.Lesson
	for _, jd := range data.JournalDates {
		d, err := ParseDate(jd.Date)
		if err != nil {
			continue
		}
		d = dateOnly(d)
		if d.Before(cutoff) {
			continue
		}

		raw, ok := row.Cells[strconv.FormatInt(jd.DateID, 10)]
		if !ok {
			continue
		}

		valueID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}

		code, ok := valueByID[valueID]
		if !ok {
			continue
		}

		var kind string
		switch {
		case code.IsMark:
			kind = model.KindMark
		case code.IsPass:
			kind = model.KindPass
		}

		lessons = append(lessons, model.Lesson{
			Date:       d,
			HourNumber: jd.HourNumber,
			Value:      code.Value.String(),
			Kind:       kind,
		})
	}

	sort.SliceStable(lessons, func(i, j int) bool {
		if !lessons[i].Date.Equal(lessons[j].Date) {
			return lessons[i].Date.Before(lessons[j].Date)
		}
		return lessons[i].HourNumber < lessons[j].HourNumber
	})

	return lessons, nil
}

func findStudentRow(rows []model.StudentRow, sel StudentSelector) (*model.StudentRow, error) {
	for i := range rows {
		if sel.StudentID != 0 && rows[i].ID == sel.StudentID {
			return &rows[i], nil
		}
		if sel.FullName != "" && rows[i].FullName == sel.FullName {
			return &rows[i], nil
		}
	}
	if sel.StudentID == 0 && sel.FullName == "" && len(rows) > 0 {
		return &rows[0], nil
	}
	return nil, errors.ErrStudentNotFound
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
