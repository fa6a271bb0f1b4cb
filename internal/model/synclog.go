package model

import "time"

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// SyncLog records the outcome of one synchronization run. Written exactly once
// per run, on every exit path, and never mutated afterward.
type SyncLog struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"user_id" db:"user_id"`
	Status       SyncStatus `json:"status" db:"status"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	GradesCount  int        `json:"grades_count" db:"grades_count"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
