package sync

import (
	"testing"
	"time"

	"github.com/goxa2020/journal-bot/internal/model"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestReconcileInsertsOnlyNewGrades(t *testing.T) {
	existing := []model.Grade{
		{Date: mustDate(t, "2025-11-20"), Value: "5"},
	}
	parsed := []model.ParsedGrade{
		{Date: "2025-11-20", Value: "5", Type: "mark"}, // already stored
		{Date: "2025-11-21", Value: "4", Type: "mark"},
	}

	toInsert, count := Reconcile(existing, parsed)
	if count != 1 || len(toInsert) != 1 {
		t.Fatalf("count = %d, toInsert = %v, want exactly one insert", count, toInsert)
	}
	if toInsert[0].Value != "4" || !toInsert[0].Date.Equal(mustDate(t, "2025-11-21")) {
		t.Errorf("inserted %+v, want the 2025-11-21 grade", toInsert[0])
	}
}

func TestReconcileIdempotence(t *testing.T) {
	parsed := []model.ParsedGrade{
		{Date: "2025-11-20", Value: "5", Type: "mark"},
		{Date: "2025-11-21", Value: "+", Type: "pass"},
	}

	first, n := Reconcile(nil, parsed)
	if n != 2 {
		t.Fatalf("first pass inserted %d, want 2", n)
	}

	// Second pass with history now containing everything the first inserted.
	existing := make([]model.Grade, len(first))
	for i, g := range first {
		existing[i] = model.Grade{Date: g.Date, Value: g.Value}
	}

	second, n := Reconcile(existing, parsed)
	if n != 0 || len(second) != 0 {
		t.Errorf("second pass inserted %d (%v), want nothing", n, second)
	}
}

func TestReconcileDeduplicatesWithinBatch(t *testing.T) {
	parsed := []model.ParsedGrade{
		{Date: "2025-11-20", Value: "5", Type: "mark", Comment: "first"},
		{Date: "2025-11-20", Value: "5", Type: "pass", Comment: "second"},
	}

	toInsert, count := Reconcile(nil, parsed)
	if count != 1 {
		t.Fatalf("count = %d, want 1 (same date+value is one logical grade)", count)
	}
	// Insertion order follows parsed order, so the first occurrence wins.
	if toInsert[0].Comment != "first" {
		t.Errorf("kept %+v, want first occurrence", toInsert[0])
	}
}

func TestReconcileSkipsUnparseableDates(t *testing.T) {
	parsed := []model.ParsedGrade{
		{Date: "not-a-date", Value: "5"},
		{Date: "2025-11-21", Value: "4"},
	}

	toInsert, count := Reconcile(nil, parsed)
	if count != 1 || len(toInsert) != 1 {
		t.Fatalf("count = %d, want bad date skipped silently", count)
	}
	if toInsert[0].Value != "4" {
		t.Errorf("inserted %+v", toInsert[0])
	}
}

func TestReconcileInsertionOrderFollowsParsed(t *testing.T) {
	parsed := []model.ParsedGrade{
		{Date: "2025-11-22", Value: "3"},
		{Date: "2025-11-20", Value: "5"},
		{Date: "2025-11-21", Value: "4"},
	}

	toInsert, _ := Reconcile(nil, parsed)
	if len(toInsert) != 3 {
		t.Fatalf("len = %d, want 3", len(toInsert))
	}
	for i, want := range []string{"3", "5", "4"} {
		if toInsert[i].Value != want {
			t.Errorf("toInsert[%d].Value = %q, want %q", i, toInsert[i].Value, want)
		}
	}
}

func TestReconcileSameDayDifferentValues(t *testing.T) {
	parsed := []model.ParsedGrade{
		{Date: "2025-11-20", Value: "5"},
		{Date: "2025-11-20", Value: "4"},
	}

	_, count := Reconcile(nil, parsed)
	if count != 2 {
		t.Errorf("count = %d, want 2 (different values are distinct grades)", count)
	}
}
