package model

import "time"

type SyncJob struct {
	UserID int64 `json:"user_id"`
}

type ReportJob struct {
	UserID int64 `json:"user_id"`
}

type CredentialsRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ParsedGrade is one grade as produced by a sync run, before reconciliation.
// Date stays in ISO form until the reconciler re-parses it; a value that no
// longer parses at that point is skipped rather than written to storage.
type ParsedGrade struct {
	Date    string `json:"date"`
	Value   string `json:"value"`
	Type    string `json:"type"`
	Comment string `json:"comment"`
}

// SubjectGrades is the orchestrator's per-journal output unit.
type SubjectGrades struct {
	Code    string        `json:"code"`
	Name    string        `json:"name"`
	Teacher string        `json:"teacher"`
	Grades  []ParsedGrade `json:"grades"`
}

type SyncHistoryResponse struct {
	UserID int64     `json:"user_id"`
	Runs   []SyncLog `json:"runs"`
}

type ReportResponse struct {
	UserID      int64     `json:"user_id"`
	ObjectKey   string    `json:"object_key"`
	GeneratedAt time.Time `json:"generated_at"`
}
