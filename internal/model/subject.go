package model

import "time"

// Subject is one course/section synced from the portal, unique per
// (user_id, code). Code is the portal journal ID rendered as a string.
type Subject struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	Teacher   string    `json:"teacher" db:"teacher"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
