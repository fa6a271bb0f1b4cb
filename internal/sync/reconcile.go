package sync

import (
	"time"

	"github.com/goxa2020/journal-bot/internal/model"
)

const dateLayout = "2006-01-02"

// Reconcile computes the minimal insert set between freshly parsed grades and
// the grades already stored for the same subject. Identity is (date, value):
// two grades on the same day with the same display value are one logical
// grade, regardless of kind or comment drift.
//
// Pure and deterministic: keys are order-independent and the insert list
// follows the order of parsed. Duplicates inside the parsed batch collapse to
// a single insertion. A parsed grade whose date no longer parses is skipped,
// counted neither as inserted nor as an error.
func Reconcile(existing []model.Grade, parsed []model.ParsedGrade) ([]model.NewGrade, int) {
	seen := make(map[gradeKey]struct{}, len(existing))
	for _, g := range existing {
		seen[gradeKey{g.Date.Format(dateLayout), g.Value}] = struct{}{}
	}

	var toInsert []model.NewGrade
	for _, p := range parsed {
		date, ok := parseGradeDate(p.Date)
		if !ok {
			continue
		}

		key := gradeKey{date.Format(dateLayout), p.Value}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		toInsert = append(toInsert, model.NewGrade{
			Date:    date,
			Value:   p.Value,
			Type:    p.Type,
			Comment: p.Comment,
		})
	}

	return toInsert, len(toInsert)
}

type gradeKey struct {
	date  string
	value string
}

func parseGradeDate(s string) (time.Time, bool) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
