package models

import "time"

// StudySession is the stored summary of one study run.
type StudySession struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	CourseID        string    `json:"course_id" db:"course_id"`
	TotalAnswered   int       `json:"total_answered" db:"total_answered"`
	TotalCorrect    int       `json:"total_correct" db:"total_correct"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	StartedAt       time.Time `json:"started_at" db:"started_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// CourseStats is the aggregate progress of one user in one course.
type CourseStats struct {
	CourseID      string  `json:"course_id" db:"course_id"`
	TotalCards    int     `json:"total_cards" db:"total_cards"`
	NewCards      int     `json:"new_cards" db:"new_cards"`
	LearningCards int     `json:"learning_cards" db:"learning_cards"`
	MasteredCards int     `json:"mastered_cards" db:"mastered_cards"`
	TimesReviewed int     `json:"times_reviewed" db:"times_reviewed"`
	TimesCorrect  int     `json:"times_correct" db:"times_correct"`
	Accuracy      float64 `json:"accuracy" db:"-"`
}
