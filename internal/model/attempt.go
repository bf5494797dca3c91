package model

import "time"

// Attempt is a user's recorded interaction with one question. Created on
// the first submission, updated in place on resubmission: CompletedAt is
// immutable once set, LastUpdatedAt refreshes on every write.
type Attempt struct {
	UserID           int       `json:"-"`
	QuestionID       string    `json:"question_id"`
	CompletedAt      time.Time `json:"completed_at"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
	TimeTakenSeconds int       `json:"time_taken_seconds,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

// SubmitAttemptRequest records a practice submission.
type SubmitAttemptRequest struct {
	QuestionID       string  `json:"question_id" binding:"required,min=3,max=64"`
	TimeTakenSeconds *int    `json:"time_taken_seconds" binding:"omitempty,min=0,max=86400"`
	Notes            *string `json:"notes" binding:"omitempty,max=2000"`
}

// DailyActivity aggregates a user's submissions for one calendar day.
type DailyActivity struct {
	Day          time.Time `json:"day"`
	Attempts     int       `json:"attempts"`
	TotalSeconds int       `json:"total_seconds"`
}
