package model

import "time"

// Question is a single practice question. IDs follow the <topic>-<number>
// convention ("alg-1001") that drives progress classification.
type Question struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Paper      string    `json:"paper"`
	Prompt     string    `json:"prompt"`
	Answer     string    `json:"answer"`
	Solution   string    `json:"solution,omitempty"`
	Difficulty int       `json:"difficulty"`
	SourceYear int       `json:"source_year,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateQuestionRequest is the admin payload for adding a question.
type CreateQuestionRequest struct {
	ID         string `json:"id" binding:"required,min=3,max=64"`
	Prompt     string `json:"prompt" binding:"required,min=1,max=8000"`
	Answer     string `json:"answer" binding:"required,max=4000"`
	Solution   string `json:"solution" binding:"max=16000"`
	Difficulty int    `json:"difficulty" binding:"min=1,max=5"`
	SourceYear int    `json:"source_year" binding:"omitempty,min=1990,max=2100"`
}

// UpdateQuestionRequest is the admin payload for editing a question.
// The ID (and with it the topic) is immutable.
type UpdateQuestionRequest struct {
	Prompt     string `json:"prompt" binding:"required,min=1,max=8000"`
	Answer     string `json:"answer" binding:"required,max=4000"`
	Solution   string `json:"solution" binding:"max=16000"`
	Difficulty int    `json:"difficulty" binding:"min=1,max=5"`
	SourceYear int    `json:"source_year" binding:"omitempty,min=1990,max=2100"`
}
