package model

import "time"

type Grade struct {
	ID        int64     `json:"id" db:"id"`
	SubjectID int64     `json:"subject_id" db:"subject_id"`
	Date      time.Time `json:"date" db:"date"`
	Value     string    `json:"value" db:"value"`
	Type      string    `json:"type" db:"type"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewGrade is a grade selected for insertion by the reconciler.
type NewGrade struct {
	Date    time.Time `json:"date"`
	Value   string    `json:"value"`
	Type    string    `json:"type"`
	Comment string    `json:"comment"`
}
